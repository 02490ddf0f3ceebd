// Package dataset loads YOLO-format detection datasets: an images
// directory, one label file per image, and class names resolved from the
// dataset metadata.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ARTIFACTIQ/gt-audit/internal/audit"
	"github.com/ARTIFACTIQ/gt-audit/internal/geometry"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// Dataset is an opened YOLO dataset rooted at Path. Images and labels live
// in the detected split directories; ClassNames maps YOLO class ids to
// human names.
type Dataset struct {
	Path       string
	ImagesDir  string
	LabelsDir  string
	ClassNames map[int]string

	logger *zap.Logger
}

// Open detects the dataset layout under path and loads class names.
// Supported layouts, first match wins:
//
//	images/<split> + labels/<split>      for split in val, train, test, ""
//	images/<split> + data/<split>/labels
//	images/ + labels/                    (flat)
func Open(path string, logger *zap.Logger) (*Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	imagesDir, labelsDir, err := detectStructure(path)
	if err != nil {
		return nil, err
	}

	classNames, err := loadClassNames(path, logger)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Path:       path,
		ImagesDir:  imagesDir,
		LabelsDir:  labelsDir,
		ClassNames: classNames,
		logger:     logger,
	}, nil
}

func detectStructure(path string) (string, string, error) {
	// The empty split is the flat images/ + labels/ layout.
	for _, split := range []string{"val", "train", "test", ""} {
		imgDir := filepath.Join(path, "images", split)
		lblDir := filepath.Join(path, "labels", split)
		lblDirAlt := filepath.Join(path, "data", split, "labels")

		if !dirExists(imgDir) {
			continue
		}
		if dirExists(lblDir) {
			return imgDir, lblDir, nil
		}
		if dirExists(lblDirAlt) {
			return imgDir, lblDirAlt, nil
		}
	}

	return "", "", fmt.Errorf("could not detect dataset structure in %s: expected images/ and labels/ directories", path)
}

func dirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// loadClassNames tries dataset.yaml, data/dataset.yaml, and data.yaml for a
// "names" sequence or id-keyed mapping, then classes.txt with one name per
// line. No names anywhere is a warning, not an error; annotations fall back
// to class_<id>.
func loadClassNames(path string, logger *zap.Logger) (map[int]string, error) {
	yamlPaths := []string{
		filepath.Join(path, "dataset.yaml"),
		filepath.Join(path, "data", "dataset.yaml"),
		filepath.Join(path, "data.yaml"),
	}

	for _, yamlPath := range yamlPaths {
		if _, err := os.Stat(yamlPath); err != nil {
			continue
		}
		content, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", yamlPath, err)
		}
		names, err := parseNamesYAML(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", yamlPath, err)
		}
		if len(names) > 0 {
			return names, nil
		}
	}

	txtPath := filepath.Join(path, "classes.txt")
	if content, err := os.ReadFile(txtPath); err == nil {
		names := make(map[int]string)
		for i, line := range strings.Split(string(content), "\n") {
			name := strings.TrimSpace(line)
			if name != "" {
				names[i] = name
			}
		}
		if len(names) > 0 {
			return names, nil
		}
	}

	logger.Warn("no class names found, falling back to class ids", zap.String("dataset", path))
	return map[int]string{}, nil
}

func parseNamesYAML(content []byte) (map[int]string, error) {
	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}

	names := make(map[int]string)
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		for i, item := range doc.Names.Content {
			if item.Kind == yaml.ScalarNode && item.Tag == "!!str" {
				names[i] = item.Value
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(doc.Names.Content); i += 2 {
			key, val := doc.Names.Content[i], doc.Names.Content[i+1]
			id, err := strconv.Atoi(key.Value)
			if err != nil || val.Kind != yaml.ScalarNode {
				continue
			}
			names[id] = val.Value
		}
	}
	return names, nil
}

// Images lists the image file names in the images directory, sorted. Only
// jpg, jpeg, png, webp, and bmp files count. An unreadable directory yields
// an empty list.
func (d *Dataset) Images() []string {
	entries, err := os.ReadDir(d.ImagesDir)
	if err != nil {
		return nil
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if imageExtensions[ext] {
			images = append(images, entry.Name())
		}
	}

	sort.Strings(images)
	return images
}

// ImageCount returns the number of auditable images.
func (d *Dataset) ImageCount() int {
	return len(d.Images())
}

// LabelPath returns the label file path paired with an image name.
func (d *Dataset) LabelPath(imageID string) string {
	stem := strings.TrimSuffix(imageID, filepath.Ext(imageID))
	return filepath.Join(d.LabelsDir, stem+".txt")
}

// Annotations parses the label file for an image. Each line is
// "class_id cx cy w h"; malformed lines are skipped, extra columns are
// ignored. A missing label file means an unlabeled image, not an error.
func (d *Dataset) Annotations(imageID string) ([]audit.Annotation, error) {
	labelPath := d.LabelPath(imageID)

	file, err := os.Open(labelPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read label file %s: %w", labelPath, err)
	}
	defer file.Close()

	var annotations []audit.Annotation
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		parts := strings.Fields(scanner.Text())
		if len(parts) < 5 {
			continue
		}

		classID, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		coords, ok := parseCoords(parts[1:5])
		if !ok {
			continue
		}

		annotations = append(annotations, audit.Annotation{
			Class: d.ClassName(classID),
			Box:   geometry.Box{CX: coords[0], CY: coords[1], W: coords[2], H: coords[3]},
			Line:  lineNum,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file %s: %w", labelPath, err)
	}

	return annotations, nil
}

func parseCoords(parts []string) ([4]float64, bool) {
	var coords [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return coords, false
		}
		coords[i] = v
	}
	return coords, true
}

// ClassName resolves a class id to its configured name, falling back to
// class_<id> for ids missing from the metadata.
func (d *Dataset) ClassName(classID int) string {
	if name, ok := d.ClassNames[classID]; ok {
		return name
	}
	return fmt.Sprintf("class_%d", classID)
}
