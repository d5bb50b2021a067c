// package testing contains shared testing utilities
package testing

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("Path should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustWriteFile writes content to path, creating parent folders.
func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

// MustWriteZip writes a zip archive whose members are given by name. Members are written in name order.
func MustWriteZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip %s: %v", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s to zip: %v", name, err)
		}
		if _, err := io.WriteString(w, members[name]); err != nil {
			t.Fatalf("Failed to write %s to zip: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip %s: %v", path, err)
	}
}

var headerFieldOrder = []string{
	"cruise", "ship", "filename", "profileid", "bottomdepth", "ctdrosettefilename",
	"latitude", "longitude", "firstimage", "volimage", "aa", "exp", "dn",
	"winddir", "windspeed", "seastate", "nebuloussness", "comment", "endimg",
	"yoyo", "stationid", "sampletype", "integrationtime", "argoid", "pixelsize", "sampledatetime",
}

// HeaderLine builds a 26 field header line for sample, recorded in rawFile. Overrides replace fields by name.
func HeaderLine(sample, rawFile string, overrides map[string]string) string {
	values := map[string]string{
		"cruise":             "tara_2020",
		"ship":               "tara",
		"filename":           rawFile,
		"profileid":          sample,
		"bottomdepth":        "1200",
		"ctdrosettefilename": "ctd_" + sample,
		"latitude":           "43.41",
		"longitude":          "7.19",
		"firstimage":         "12",
		"volimage":           "0.5",
		"aa":                 "0.0032",
		"exp":                "1.36",
		"dn":                 "d",
		"winddir":            "90",
		"windspeed":          "5",
		"seastate":           "2",
		"nebuloussness":      "3",
		"comment":            "nominal cast",
		"endimg":             "9000",
		"yoyo":               "N",
		"stationid":          "st_" + sample,
		"sampletype":         "D",
		"integrationtime":    "1",
		"argoid":             "",
		"pixelsize":          "0.094",
		"sampledatetime":     rawFile,
	}
	for k, v := range overrides {
		values[k] = v
	}

	fields := make([]string, len(headerFieldOrder))
	for i, name := range headerFieldOrder {
		fields[i] = values[name]
	}
	return strings.Join(fields, ";")
}

// UVP6HDR builds the INI metadata document of a UVP6 sample.
func UVP6HDR(sample, comment string) string {
	return strings.Join([]string{
		"; generated by the acquisition software",
		"[sample_metadata]",
		"cruise = tara_2020",
		"ship = tara",
		"filename = 20200312-101010",
		"profileid = " + sample,
		"bottomdepth = 1200",
		"ctdrosettefilename = ctd_" + sample,
		"latitude = 12°34 56",
		"longitude = -7.5",
		"firstimage = 1",
		"endimg = 900",
		"comment = " + comment,
		"winddir = 90",
		"windspeed = 5",
		"seastate = 2",
		"nebuloussness = 3",
		"yoyo = N",
		"stationid = st_" + sample,
		"sampletype = T",
		"integrationtime = 1",
		"argoid =",
		"sampledatetime = 20200312-101010",
		"",
		"[HW_CONF]",
		"Pixel_Size = 73",
		"Image_volume = 0.7",
		"Aa = 2300",
		"Exp = 1.136",
		"",
	}, "\n")
}

// VignetteSettingsFile is a compute_vignette.txt document.
const VignetteSettingsFile = `gamma = 1.5
invert = n
scalebarsize_mm = 1
keeporiginal = y
fontcolor = white
fontheight_px = 12
footerheight_px = 31
scale = 2
`

// UVP6Sample writes raw/<sample>/ with its particle and images archives below projectRoot.
func UVP6Sample(t *testing.T, projectRoot, sample, comment string) {
	t.Helper()
	dir := filepath.Join(projectRoot, "raw", sample)
	MustWriteZip(t, filepath.Join(dir, sample+"_Particule.zip"), map[string]string{
		sample + ".hdr": UVP6HDR(sample, comment),
		"data.txt":      "0;0;0\n",
	})
	MustWriteZip(t, filepath.Join(dir, sample+"_Images.zip"), map[string]string{
		"compute_vignette.txt": VignetteSettingsFile,
		"img_0001.png":         "png",
	})
}

// UVP6Project lays out a UVP6 project tree listing samples in its header file.
func UVP6Project(t *testing.T, projectRoot string, samples ...string) {
	t.Helper()
	lines := make([]string, 0, len(samples))
	for _, s := range samples {
		UVP6Sample(t, projectRoot, s, "nominal cast")
		lines = append(lines, HeaderLine(s, "20200312-101010", map[string]string{"sampletype": "T"}))
	}
	MustWriteFile(t, filepath.Join(projectRoot, "meta", "uvp6_header_tara.txt"), strings.Join(lines, "\n")+"\n")
	MustWriteFile(t, filepath.Join(projectRoot, "config", "uvp6_sn000110lp.ini"), "[config]\nmodel = UVP6LP\n")
}

// UVP5Project lays out a UVP5 project tree. Sample i is recorded in raw file "2020031210101<i>".
func UVP5Project(t *testing.T, projectRoot string, samples ...string) {
	t.Helper()
	lines := make([]string, 0, len(samples)+1)
	lines = append(lines, strings.Join(headerFieldOrder, ";"))
	for i, s := range samples {
		rawFile := "2020031210101" + string(rune('0'+i%10))
		lines = append(lines, HeaderLine(s, rawFile, nil))
		MustWriteFile(t, filepath.Join(projectRoot, "raw", "HDR"+rawFile, "HDR"+rawFile+".hdr"), "raw header\n")
		MustWriteFile(t, filepath.Join(projectRoot, "work", s, s+"_datfile.txt"), "1;2;3\n")
	}
	MustWriteFile(t, filepath.Join(projectRoot, "meta", "uvp5_header_tara.txt"), strings.Join(lines, "\n")+"\n")
	MustWriteFile(t, filepath.Join(projectRoot, "config", "uvp5_settings.txt"), "light=1\n")
}
