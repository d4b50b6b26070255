package staffing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DecodeCandidate converts a loose candidate document into a Candidate.
// Malformed fields are left at their zero value and reported in the returned
// list so the neutral defaults apply; only a document without an id fails.
func DecodeCandidate(raw map[string]any) (*Candidate, []string, error) {
	var candidate Candidate
	defaulted, err := decodeLoose(raw, &candidate)
	if err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(candidate.ID) == "" {
		return nil, defaulted, fmt.Errorf("candidate document has no id")
	}

	return &candidate, defaulted, nil
}

// DecodeJob converts a loose job document into a Job with the same tolerance
// as DecodeCandidate.
func DecodeJob(raw map[string]any) (*Job, []string, error) {
	var job Job
	defaulted, err := decodeLoose(raw, &job)
	if err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(job.ID) == "" {
		return nil, defaulted, fmt.Errorf("job document has no id")
	}

	return &job, defaulted, nil
}

func decodeLoose(raw map[string]any, out any) ([]string, error) {
	if raw == nil {
		return nil, errors.New("document is empty")
	}

	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	err = decoder.Decode(raw)
	if err == nil {
		return nil, nil
	}

	var merr *mapstructure.Error
	if errors.As(err, &merr) {
		return merr.Errors, nil
	}

	return nil, err
}

func stringToTimeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, nil
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			// unparseable timestamps count as unknown activity
			return time.Time{}, nil
		}
		return parsed, nil
	case time.Time:
		return v, nil
	default:
		return time.Time{}, nil
	}
}
