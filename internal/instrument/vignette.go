package instrument

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

const vignetteMember = "compute_vignette.txt"

// ReadVignetteSettings reads compute_vignette.txt from a sample's images archive.
//
// It returns nil without opening the archive when comment says no vignettes were generated.
func ReadVignetteSettings(sampleFolder, comment string) (*models.VignetteSettings, error) {
	if strings.Contains(strings.ToLower(comment), "no vignette") {
		return nil, nil
	}

	archive := ImagesArchivePath(sampleFolder)
	r, err := openArchive(archive)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var member *zip.File
	for _, f := range r.File {
		if strings.EqualFold(path.Base(f.Name), vignetteMember) {
			member = f
			break
		}
	}
	if member == nil {
		return nil, fmt.Errorf("%w: %s in %s", shared.ErrNotFound, vignetteMember, archive)
	}

	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", shared.ErrParse, member.Name, err)
	}
	defer rc.Close()

	return ParseVignetteSettings(rc)
}

// ParseVignetteSettings reads "key = value" lines. Unknown keys and lines without '=' are ignored.
func ParseVignetteSettings(r io.Reader) (*models.VignetteSettings, error) {
	settings := &models.VignetteSettings{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "gamma":
			settings.Gamma, err = strconv.ParseFloat(value, 64)
		case "invert":
			settings.Invert, err = parseFlag(value)
		case "scalebarsize_mm":
			settings.ScaleBarSizeMM, err = strconv.ParseFloat(value, 64)
		case "keeporiginal":
			settings.KeepImage, err = parseFlag(value)
		case "fontcolor":
			settings.FontColor = value
		case "fontheight_px":
			settings.FontHeightPx, err = strconv.Atoi(value)
		case "footerheight_px":
			settings.FooterHeightPx, err = strconv.Atoi(value)
		case "scale":
			settings.Scale, err = strconv.ParseFloat(value, 64)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: vignette setting %s=%q", shared.ErrParse, key, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vignette settings: %w", err)
	}
	return settings, nil
}

func parseFlag(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "y", "yes", "true", "1":
		return true, nil
	case "n", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag %q", value)
}
