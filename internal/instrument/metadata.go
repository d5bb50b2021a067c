package instrument

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

const (
	particleSuffix = "_Particule.zip"
	imagesSuffix   = "_Images.zip"

	sectionSampleMetadata = "sample_metadata"
	sectionHardware       = "HW_CONF"
)

// ParticleArchivePath is the particle archive of a UVP6 sample folder.
func ParticleArchivePath(sampleFolder string) string {
	return filepath.Join(sampleFolder, filepath.Base(sampleFolder)+particleSuffix)
}

// ImagesArchivePath is the images archive of a UVP6 sample folder.
func ImagesArchivePath(sampleFolder string) string {
	return filepath.Join(sampleFolder, filepath.Base(sampleFolder)+imagesSuffix)
}

// openArchive opens a zip, mapping a missing file to [shared.ErrNotFound].
func openArchive(path string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: archive %s", shared.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read archive %s: %v", shared.ErrParse, path, err)
	}
	return r, nil
}

// DecodeMetadata parses the single *.hdr member of a sample's particle archive.
//
// Members are matched by name from the central directory; only the selected member is decompressed.
func DecodeMetadata(sampleFolder string) (INI, error) {
	path := ParticleArchivePath(sampleFolder)
	r, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var member *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".hdr") {
			continue
		}
		if member != nil {
			return nil, fmt.Errorf("%w: archive %s holds more than one .hdr member", shared.ErrParse, path)
		}
		member = f
	}
	if member == nil {
		return nil, fmt.Errorf("%w: no .hdr member in %s", shared.ErrNotFound, path)
	}

	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s in %s: %v", shared.ErrParse, member.Name, path, err)
	}
	defer rc.Close()

	doc, err := ParseINI(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", member.Name, err)
	}
	return doc, nil
}

// DraftFromINI maps a UVP6 metadata document onto a sample draft named after the sample folder.
// The sample type id and vignette settings are resolved separately.
func DraftFromINI(sampleName string, doc INI, family models.InstrumentFamily) (*models.SampleDraft, error) {
	if _, ok := doc[sectionSampleMetadata]; !ok {
		return nil, fmt.Errorf("%w: section [%s] for sample %s", shared.ErrNotFound, sectionSampleMetadata, sampleName)
	}

	text := func(key string) string { return doc.Text(sectionSampleMetadata, key) }
	num := func(key string) float64 { return doc.Number(sectionSampleMetadata, key) }

	d := models.NewSampleDraft(sampleName)
	d.Cruise = text("cruise")
	d.Ship = text("ship")
	d.RawFileName = text("filename")
	d.ProfileID = text("profileid")
	d.BottomDepth = num("bottomdepth")
	d.CTDRosetteFilename = text("ctdrosettefilename")
	d.FirstImage = num("firstimage")
	d.LastImage = num("endimg")
	d.Comment = text("comment")
	d.WindDirection = num("winddir")
	d.WindSpeed = num("windspeed")
	d.SeaState = num("seastate")
	d.Nebulousness = num("nebuloussness")
	d.Yoyo = text("yoyo")
	d.StationID = text("stationid")
	d.SampleTypeLetter = text("sampletype")
	d.IntegrationTime = num("integrationtime")
	d.ArgoID = text("argoid")

	d.PixelSize = doc.Number(sectionHardware, "Pixel_Size")
	d.ImageVolume = doc.Number(sectionHardware, "Image_volume")
	d.Aa = doc.Number(sectionHardware, "Aa")
	d.Exp = doc.Number(sectionHardware, "Exp")

	var err error
	if d.Latitude, err = ConvertCoordinate(text("latitude"), family); err != nil {
		return nil, fmt.Errorf("sample %s latitude: %w", sampleName, err)
	}
	if d.Longitude, err = ConvertCoordinate(text("longitude"), family); err != nil {
		return nil, fmt.Errorf("sample %s longitude: %w", sampleName, err)
	}

	date, err := ParseSamplingDate(text("sampledatetime"))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", sampleName, err)
	}
	d.SamplingDate = &date

	d.Sections = make(map[string]map[string]any, len(doc))
	for name, section := range doc {
		if name == sectionSampleMetadata {
			continue
		}
		d.Sections[name] = section
	}

	return d, nil
}

// DecodeUVP6Sample decodes a staged UVP6 sample folder: metadata, then vignette settings.
func DecodeUVP6Sample(sampleFolder string) (*models.SampleDraft, error) {
	doc, err := DecodeMetadata(sampleFolder)
	if err != nil {
		return nil, err
	}

	draft, err := DraftFromINI(filepath.Base(sampleFolder), doc, models.FamilyUVP6)
	if err != nil {
		return nil, err
	}

	draft.Vignette, err = ReadVignetteSettings(sampleFolder, draft.Comment)
	if err != nil {
		return nil, err
	}

	return draft, nil
}
