package codec

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"conjoint/internal/estimate"
)

// noneChoiceToken is the wire value for a "None of these" pick.
const noneChoiceToken = "none"

// observationDoc is the JSON wire form of one recorded choice. choice is the
// 1-based option index or the string "none".
type observationDoc struct {
	Version int             `json:"version"`
	Task    int             `json:"task"`
	Choice  json.RawMessage `json:"choice"`
	Segment string          `json:"segment,omitempty"`
}

// ReadObservations loads an observation batch from a JSON array or, for
// .csv files, from a CSV with a version,task,choice[,segment] header.
func ReadObservations(path string) ([]estimate.Observation, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		defer f.Close()
		obs, err := parseObservationsCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return obs, nil
	}

	var docs []observationDoc
	if err := readJSON(path, &docs); err != nil {
		return nil, err
	}
	obs := make([]estimate.Observation, 0, len(docs))
	for i, doc := range docs {
		choice, err := parseChoice(doc.Choice)
		if err != nil {
			return nil, fmt.Errorf("%s: observation %d: %w", path, i, err)
		}
		obs = append(obs, estimate.Observation{
			Version: doc.Version,
			Task:    doc.Task,
			Choice:  choice,
			Segment: doc.Segment,
		})
	}
	return obs, nil
}

func parseChoice(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing choice")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(strings.TrimSpace(s), noneChoiceToken) {
			return estimate.NoneChoice, nil
		}
		return 0, fmt.Errorf("choice must be an option number or %q, got %q", noneChoiceToken, s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("choice must be an option number or %q, got %s", noneChoiceToken, raw)
	}
	return n, nil
}

func parseObservationsCSV(r io.Reader) ([]estimate.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"version", "task", "choice"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("CSV header is missing column %q", required)
		}
	}
	segCol, hasSegment := col["segment"]

	var obs []estimate.Observation
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++
		o := estimate.Observation{}
		if o.Version, err = strconv.Atoi(strings.TrimSpace(row[col["version"]])); err != nil {
			return nil, fmt.Errorf("line %d: bad version %q", line, row[col["version"]])
		}
		if o.Task, err = strconv.Atoi(strings.TrimSpace(row[col["task"]])); err != nil {
			return nil, fmt.Errorf("line %d: bad task %q", line, row[col["task"]])
		}
		choiceStr := strings.TrimSpace(row[col["choice"]])
		if strings.EqualFold(choiceStr, noneChoiceToken) {
			o.Choice = estimate.NoneChoice
		} else if o.Choice, err = strconv.Atoi(choiceStr); err != nil {
			return nil, fmt.Errorf("line %d: choice must be an option number or %q, got %q",
				line, noneChoiceToken, choiceStr)
		}
		if hasSegment && segCol < len(row) {
			o.Segment = strings.TrimSpace(row[segCol])
		}
		obs = append(obs, o)
	}
	return obs, nil
}
