package z21

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type replayFrame struct {
	Name      string   `yaml:"name"`
	Hex       string   `yaml:"hex"`
	Events    []string `yaml:"events"`
	Errors    []string `yaml:"errors"`
	Truncated bool     `yaml:"truncated"`
}

func loadReplay(t *testing.T, path string) []replayFrame {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Frames []replayFrame `yaml:"frames"`
	}
	require.NoError(t, yaml.Unmarshal(b, &doc))
	require.NotEmpty(t, doc.Frames)
	return doc.Frames
}

var replayErrors = map[string]error{
	"bad_length":   ErrBadLength,
	"bad_header":   ErrBadHeader,
	"bad_checksum": ErrBadChecksum,
	"bad_payload":  ErrBadPayload,
}

func TestReplayCapturedFrames(t *testing.T) {
	for _, f := range loadReplay(t, "testdata/frames.yaml") {
		t.Run(f.Name, func(t *testing.T) {
			raw, err := hex.DecodeString(strings.ReplaceAll(f.Hex, " ", ""))
			require.NoError(t, err)

			outs, err := DecodeDatagram(raw)
			if f.Truncated {
				var ee *ExtractionError
				require.True(t, errors.As(err, &ee))
			} else {
				require.NoError(t, err)
			}

			var names []string
			var errs []error
			for _, o := range outs {
				if o.Err != nil {
					errs = append(errs, o.Err)
					continue
				}
				names = append(names, o.Event.EventName())
			}
			assert.Equal(t, f.Events, names)

			require.Len(t, errs, len(f.Errors))
			for i, name := range f.Errors {
				want, ok := replayErrors[name]
				require.True(t, ok, "unknown error name %q", name)
				assert.ErrorIs(t, errs[i], want)
			}
		})
	}
}
