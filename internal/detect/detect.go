// Package detect supplies the model detections compared against ground
// truth during an audit.
package detect

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ARTIFACTIQ/gt-audit/internal/audit"
	"github.com/ARTIFACTIQ/gt-audit/internal/geometry"
)

// Source yields the detections recorded for an image. Name identifies the
// detection source in reports and run history.
type Source interface {
	Detections(imageID string) ([]audit.Detection, error)
	Name() string
}

// Files reads YOLO-style prediction files from a directory: one
// "<image stem>.txt" per image with "class_id cx cy w h confidence" lines.
type Files struct {
	Dir        string
	ClassNames map[int]string
}

// NewFiles returns a prediction-file source rooted at dir. classNames maps
// YOLO class ids to the names used by the dataset; unknown ids fall back
// to class_<id>.
func NewFiles(dir string, classNames map[int]string) *Files {
	return &Files{Dir: dir, ClassNames: classNames}
}

func (f *Files) Name() string {
	return "prediction-files"
}

// Detections parses the prediction file paired with imageID. A missing
// file means the model found nothing in that image; malformed lines are
// skipped.
func (f *Files) Detections(imageID string) ([]audit.Detection, error) {
	stem := strings.TrimSuffix(imageID, filepath.Ext(imageID))
	path := filepath.Join(f.Dir, stem+".txt")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read prediction file %s: %w", path, err)
	}
	defer file.Close()

	var detections []audit.Detection
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 6 {
			continue
		}

		classID, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		values, ok := parseFloats(parts[1:6])
		if !ok {
			continue
		}

		detections = append(detections, audit.Detection{
			Class:      f.className(classID),
			Box:        geometry.Box{CX: values[0], CY: values[1], W: values[2], H: values[3]},
			Confidence: values[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prediction file %s: %w", path, err)
	}

	return detections, nil
}

func parseFloats(parts []string) ([5]float64, bool) {
	var values [5]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return values, false
		}
		values[i] = v
	}
	return values, true
}

func (f *Files) className(classID int) string {
	if name, ok := f.ClassNames[classID]; ok {
		return name
	}
	return fmt.Sprintf("class_%d", classID)
}
