package instrument

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// HeaderFields is the positional layout of a header line.
var HeaderFields = [...]string{
	"cruise", "ship", "filename", "profileid", "bottomdepth", "ctdrosettefilename",
	"latitude", "longitude", "firstimage", "volimage", "aa", "exp", "dn",
	"winddir", "windspeed", "seastate", "nebuloussness", "comment", "endimg",
	"yoyo", "stationid", "sampletype", "integrationtime", "argoid", "pixelsize", "sampledatetime",
}

// HeaderLine is one decoded line of a meta/*_header_*.txt file.
type HeaderLine struct {
	Cruise             string
	Ship               string
	Filename           string
	ProfileID          string
	BottomDepth        float64
	CTDRosetteFilename string
	Latitude           string
	Longitude          string
	FirstImage         float64
	VolImage           float64
	Aa                 float64
	Exp                float64
	DN                 string
	WindDir            float64
	WindSpeed          float64
	SeaState           float64
	Nebuloussness      float64
	Comment            string
	EndImg             float64
	Yoyo               string
	StationID          string
	SampleType         string
	IntegrationTime    float64
	ArgoID             string
	PixelSize          float64
	SampleDateTime     string
}

// DecodeHeaderLine splits a header line into its 26 fields.
// Numeric fields that fail to parse become NaN.
func DecodeHeaderLine(line string) (*HeaderLine, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ";")
	if len(fields) != len(HeaderFields) {
		return nil, fmt.Errorf("%w: header line has %d fields, expected %d", shared.ErrParse, len(fields), len(HeaderFields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	return &HeaderLine{
		Cruise:             fields[0],
		Ship:               fields[1],
		Filename:           fields[2],
		ProfileID:          fields[3],
		BottomDepth:        number(fields[4]),
		CTDRosetteFilename: fields[5],
		Latitude:           fields[6],
		Longitude:          fields[7],
		FirstImage:         number(fields[8]),
		VolImage:           number(fields[9]),
		Aa:                 number(fields[10]),
		Exp:                number(fields[11]),
		DN:                 fields[12],
		WindDir:            number(fields[13]),
		WindSpeed:          number(fields[14]),
		SeaState:           number(fields[15]),
		Nebuloussness:      number(fields[16]),
		Comment:            fields[17],
		EndImg:             number(fields[18]),
		Yoyo:               fields[19],
		StationID:          fields[20],
		SampleType:         fields[21],
		IntegrationTime:    number(fields[22]),
		ArgoID:             fields[23],
		PixelSize:          number(fields[24]),
		SampleDateTime:     fields[25],
	}, nil
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Candidate projects the line onto an importable sample, before quality checks.
func (h *HeaderLine) Candidate() models.HeaderSample {
	return models.HeaderSample{
		SampleName:  h.ProfileID,
		RawFileName: h.Filename,
		StationID:   h.StationID,
		FirstImage:  models.Float(h.FirstImage),
		LastImage:   models.Float(h.EndImg),
		Comment:     h.Comment,
	}
}

// Draft maps the line onto a sample draft. The sample type id is left for [ComputeSampleType].
//
// An empty sampledatetime falls back to the raw file name, which UVP5 names after the acquisition start.
func (h *HeaderLine) Draft(family models.InstrumentFamily) (*models.SampleDraft, error) {
	d := models.NewSampleDraft(h.ProfileID)
	d.RawFileName = h.Filename
	d.Cruise = h.Cruise
	d.Ship = h.Ship
	d.ProfileID = h.ProfileID
	d.CTDRosetteFilename = h.CTDRosetteFilename
	d.StationID = h.StationID
	d.Comment = h.Comment
	d.Yoyo = h.Yoyo
	d.ArgoID = h.ArgoID
	d.BottomDepth = h.BottomDepth
	d.FirstImage = h.FirstImage
	d.LastImage = h.EndImg
	d.WindDirection = h.WindDir
	d.WindSpeed = h.WindSpeed
	d.SeaState = h.SeaState
	d.Nebulousness = h.Nebuloussness
	d.IntegrationTime = h.IntegrationTime
	d.PixelSize = h.PixelSize
	d.ImageVolume = h.VolImage
	d.Aa = h.Aa
	d.Exp = h.Exp
	d.SampleTypeLetter = h.SampleType

	var err error
	if d.Latitude, err = ConvertCoordinate(h.Latitude, family); err != nil {
		return nil, fmt.Errorf("sample %s latitude: %w", h.ProfileID, err)
	}
	if d.Longitude, err = ConvertCoordinate(h.Longitude, family); err != nil {
		return nil, fmt.Errorf("sample %s longitude: %w", h.ProfileID, err)
	}

	raw := h.SampleDateTime
	if raw == "" {
		raw = h.Filename
	}
	date, err := ParseSamplingDate(raw)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", h.ProfileID, err)
	}
	d.SamplingDate = &date

	return d, nil
}

// ReadHeaderFiles decodes every meta/*_header_*.txt file below metaDir, in file name order.
//
// Blank lines and column title lines (first field "cruise") are skipped.
func ReadHeaderFiles(metaDir string) ([]*HeaderLine, error) {
	paths, err := filepath.Glob(filepath.Join(metaDir, "*_header_*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list header files: %w", err)
	}
	sort.Strings(paths)

	var lines []*HeaderLine
	for _, path := range paths {
		decoded, err := readHeaderFile(path)
		if err != nil {
			return nil, err
		}
		lines = append(lines, decoded...)
	}
	return lines, nil
}

func readHeaderFile(path string) ([]*HeaderLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open header file: %w", err)
	}
	defer f.Close()

	var lines []*HeaderLine
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if first, _, _ := strings.Cut(text, ";"); strings.EqualFold(strings.TrimSpace(first), "cruise") {
			continue
		}

		line, err := DecodeHeaderLine(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNo, err)
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read header file %s: %w", path, err)
	}
	return lines, nil
}
