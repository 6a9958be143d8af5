// Package casefile reads the YAML manifest describing one case run.
package casefile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/lesiontrack/internal/apperr"
)

// Case is a case manifest. Relative paths are resolved against the manifest
// directory by Load.
type Case struct {
	CaseID string `yaml:"case_id"`
	Dicom  string `yaml:"dicom"`
	// Studies lists further study folders measured alongside Dicom.
	Studies     []string `yaml:"studies"`
	Annotations string   `yaml:"annotations"`
	Timeline    string   `yaml:"timeline"`
	OutputDir   string   `yaml:"output_dir"`
	// Enrich and Validate request the advisory narrative steps.
	Enrich   bool `yaml:"enrich"`
	Validate bool `yaml:"validate"`
}

// Load reads and checks the manifest at path.
func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, err, "cannot read case manifest").WithPath(path)
	}
	c, err := Parse(data)
	if err != nil {
		if ae, ok := err.(*apperr.Error); ok {
			return nil, ae.WithPath(path)
		}
		return nil, err
	}
	c.resolve(filepath.Dir(path))
	return c, nil
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Case, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Case
	if err := dec.Decode(&c); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, err, "invalid case manifest")
	}
	if c.Dicom == "" {
		return nil, apperr.New(apperr.DicomMissing, "case manifest has no dicom path")
	}
	return &c, nil
}

func (c *Case) resolve(base string) {
	paths := []*string{&c.Dicom, &c.Annotations, &c.Timeline, &c.OutputDir}
	for i := range c.Studies {
		paths = append(paths, &c.Studies[i])
	}
	for _, p := range paths {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	if c.OutputDir == "" {
		c.OutputDir = base
	}
}

// Output returns the path of an output file of the case.
func (c *Case) Output(name string) string {
	return filepath.Join(c.OutputDir, name)
}

func (c *Case) String() string {
	return fmt.Sprintf("case %q (dicom=%s)", c.CaseID, c.Dicom)
}
