package evraw

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arloliu/evraw/archive"
	"github.com/arloliu/evraw/codec"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
	"github.com/arloliu/evraw/stream"
	"github.com/stretchr/testify/require"
)

var allFormats = []format.Format{format.DAT, format.EVT2, format.EVT3}

func sampleEvents(n int, step int64) []event.Event {
	events := make([]event.Event, n)
	for i := range events {
		events[i] = event.Event{T: int64(i) * step, X: int16(i % 640), Y: int16((7 * i) % 480), P: uint8(i % 2)}
	}

	return events
}

func pathFor(t *testing.T, name string, f format.Format) string {
	t.Helper()

	return filepath.Join(t.TempDir(), name+f.Extension())
}

func TestWriteFile_ReadFile(t *testing.T) {
	events := sampleEvents(3000, 7)

	for _, f := range allFormats {
		t.Run(f.String(), func(t *testing.T) {
			path := pathFor(t, "rec", f)

			st, err := WriteFile(path, f, events)
			require.NoError(t, err)
			require.True(t, st.Started)
			require.Equal(t, events[len(events)-1].T, st.LastT)

			batch, got, err := ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, f, got)
			require.Equal(t, events, batch.Events())
		})
	}
}

func TestAppendFile(t *testing.T) {
	events := sampleEvents(2000, 13)

	for _, f := range allFormats {
		t.Run(f.String(), func(t *testing.T) {
			oneShot := pathFor(t, "one", f)
			_, err := WriteFile(oneShot, f, events)
			require.NoError(t, err)

			appended := pathFor(t, "two", f)
			st, err := WriteFile(appended, f, events[:700])
			require.NoError(t, err)
			st, err = AppendFile(appended, f, st, events[700:1500])
			require.NoError(t, err)
			_, err = AppendFile(appended, f, st, events[1500:])
			require.NoError(t, err)

			want, err := os.ReadFile(oneShot)
			require.NoError(t, err)
			got, err := os.ReadFile(appended)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestWriteFile_ExtensionMismatch(t *testing.T) {
	dir := t.TempDir()

	_, err := WriteFile(filepath.Join(dir, "rec.raw"), format.DAT, nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedExtension)

	_, err = AppendFile(filepath.Join(dir, "rec.dat"), format.EVT3, codec.EncoderState{}, nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedExtension)
}

func TestOpen(t *testing.T) {
	for _, f := range allFormats {
		path := pathFor(t, "rec", f)
		_, err := WriteFile(path, f, sampleEvents(10, 100))
		require.NoError(t, err)

		rec, err := Open(path)
		require.NoError(t, err)
		require.Equal(t, f, rec.Format())
		require.False(t, rec.Archived())

		reader, err := rec.NewReader(stream.WithBufferSize(3))
		require.NoError(t, err)

		var n int
		for chunk, err := range reader.Chunks(stream.NewCursor(4)) {
			require.NoError(t, err)
			n += len(chunk)
		}
		require.Equal(t, 10, n)
		require.NoError(t, rec.Close())
	}
}

func TestOpen_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.raw")
	require.NoError(t, os.WriteFile(path, []byte("% camera serial 42\n\x00\x00\x00\x00"), 0o600))

	_, err := Open(path)
	require.ErrorIs(t, err, errs.ErrInvalidFormat)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.raw"))
	require.ErrorIs(t, err, errs.ErrIO)
}

func TestArchiveFile(t *testing.T) {
	events := sampleEvents(5000, 3)

	for _, f := range allFormats {
		t.Run(f.String(), func(t *testing.T) {
			path := pathFor(t, "rec", f)
			_, err := WriteFile(path, f, events)
			require.NoError(t, err)

			archived := path + ArchiveExtension
			stats, err := ArchiveFile(path, archived, archive.WithCompression(format.CompressionZstd))
			require.NoError(t, err)
			require.Less(t, stats.CompressedSize, stats.OriginalSize)

			rec, err := Open(archived)
			require.NoError(t, err)
			require.True(t, rec.Archived())
			require.Equal(t, f, rec.Format())
			require.NoError(t, rec.Close())

			batch, got, err := ReadFile(archived)
			require.NoError(t, err)
			require.Equal(t, f, got)
			require.Equal(t, events, batch.Events())

			_, err = ArchiveFile(archived, archived+ArchiveExtension)
			require.ErrorIs(t, err, errs.ErrInvalidArchive)
		})
	}
}

func TestTruncate(t *testing.T) {
	events := sampleEvents(10, 1000)

	for _, f := range allFormats {
		t.Run(f.String(), func(t *testing.T) {
			in := pathFor(t, "in", f)
			_, err := WriteFile(in, f, events)
			require.NoError(t, err)

			out := pathFor(t, "out", f)
			n, err := Truncate(in, out, f, 3)
			require.NoError(t, err)
			require.Equal(t, 4, n)

			batch, _, err := ReadFile(out)
			require.NoError(t, err)
			require.Equal(t, events[:4], batch.Events())

			archived := in + ArchiveExtension
			_, err = ArchiveFile(in, archived, archive.WithCompression(format.CompressionLZ4))
			require.NoError(t, err)

			out2 := pathFor(t, "out2", f)
			n, err = Truncate(archived, out2, f, 3)
			require.NoError(t, err)
			require.Equal(t, 4, n)

			want, err := os.ReadFile(out)
			require.NoError(t, err)
			got, err := os.ReadFile(out2)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestTruncate_InvalidArguments(t *testing.T) {
	in := pathFor(t, "in", format.EVT2)
	_, err := WriteFile(in, format.EVT2, sampleEvents(5, 10))
	require.NoError(t, err)

	_, err = Truncate(in, filepath.Join(t.TempDir(), "out.dat"), format.EVT2, 1)
	require.ErrorIs(t, err, errs.ErrUnsupportedExtension)

	_, err = Truncate(in, pathFor(t, "out", format.EVT2), format.EVT2, 0)
	require.ErrorIs(t, err, errs.ErrInvalidWindow)

	_, err = Truncate(in, pathFor(t, "out", format.EVT3), format.EVT3, 1)
	require.ErrorIs(t, err, errs.ErrInvalidFormat)
}
