package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/posecap/frame"
)

// A Keyframe is one processed frame of a recording session together with the raw frame it was
// produced from.
type Keyframe struct {
	ElapsedMs float64      `json:"elapsed_ms"`
	Frame     *frame.Frame `json:"frame"`
	Raw       *frame.Frame `json:"raw,omitempty"`
}

// Recording accumulates the keyframes of a recording session.
type Recording struct {
	ID        uuid.UUID  `json:"id"`
	Rig       frame.Kind `json:"rig"`
	Started   time.Time  `json:"started"`
	Keyframes []Keyframe `json:"-"`
}

// NewRecording starts an empty recording.
func NewRecording(rig frame.Kind, started time.Time) *Recording {
	return &Recording{ID: uuid.New(), Rig: rig, Started: started}
}

// Append adds a keyframe.
func (r *Recording) Append(kf Keyframe) {
	r.Keyframes = append(r.Keyframes, kf)
}

// Len returns the number of keyframes.
func (r *Recording) Len() int {
	return len(r.Keyframes)
}

// DurationMs returns the elapsed time between the first and last keyframes.
func (r *Recording) DurationMs() float64 {
	if len(r.Keyframes) < 2 {
		return 0
	}
	return r.Keyframes[len(r.Keyframes)-1].ElapsedMs - r.Keyframes[0].ElapsedMs
}

// WriteJSONLines writes the recording as a header line followed by one line per keyframe.
func (r *Recording) WriteJSONLines(w io.Writer) error {
	bw := bufio.NewWriter(w)
	encoder := json.NewEncoder(bw)
	if err := encoder.Encode(r); err != nil {
		return errors.Wrap(err, "cannot write recording header")
	}
	for i, kf := range r.Keyframes {
		if err := encoder.Encode(kf); err != nil {
			return errors.Wrapf(err, "cannot write keyframe %d", i)
		}
	}
	return bw.Flush()
}

// maxLineBytes bounds one keyframe line; a full skeleton frame with its raw frame is a few KB.
const maxLineBytes = 4 << 20

// ReadRecording reads a recording written by WriteJSONLines.
func ReadRecording(r io.Reader) (*Recording, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "cannot read recording header")
		}
		return nil, errors.New("recording is empty")
	}
	var rec Recording
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		return nil, errors.Wrap(err, "cannot decode recording header")
	}
	for line := 2; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var kf Keyframe
		if err := json.Unmarshal(scanner.Bytes(), &kf); err != nil {
			return nil, errors.Wrapf(err, "cannot decode keyframe on line %d", line)
		}
		if kf.Frame == nil {
			return nil, errors.Errorf("keyframe on line %d has no frame", line)
		}
		rec.Keyframes = append(rec.Keyframes, kf)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read recording")
	}
	return &rec, nil
}

// ReadRecordingFile reads a recording from a file.
func ReadRecordingFile(path string) (*Recording, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rec, err := ReadRecording(f)
	return rec, multierr.Combine(err, f.Close())
}

// An Exporter hands a finished recording to a persistence or animation export stage.
type Exporter interface {
	Export(ctx context.Context, rec *Recording) error
}

// FileExporter writes each recording as JSON lines to Dir/<recording id>.jsonl.
type FileExporter struct {
	Dir string
}

// Path returns the file a recording is exported to.
func (e FileExporter) Path(rec *Recording) string {
	return filepath.Join(e.Dir, rec.ID.String()+".jsonl")
}

// Export writes rec.
func (e FileExporter) Export(ctx context.Context, rec *Recording) (err error) {
	if err := os.MkdirAll(e.Dir, 0o750); err != nil {
		return err
	}
	//nolint:gosec
	f, err := os.Create(e.Path(rec))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return rec.WriteJSONLines(f)
}
