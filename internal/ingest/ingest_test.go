package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ideaboard/internal/board"
)

// failingReader simulates an unreadable upload stream.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("read failed")
}

func TestIngestPNGCentersOnDropPoint(t *testing.T) {
	s := board.NewStore()
	results := IngestFiles(s, []FileInput{
		{Name: "shot.png", MIMEType: "image/png", Content: bytes.NewReader([]byte{0x89, 0x50, 0x4e, 0x47})},
	}, board.Position{X: 200, Y: 150})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	node := results[0].Node
	require.Equal(t, board.KindImage, node.Kind)
	require.NotEmpty(t, node.Data)
	require.Equal(t, "image/png", node.MIMEType)
	// 200x200 default image size, centered on the drop point.
	require.Equal(t, board.Position{X: 100, Y: 50}, node.Position)
}

func TestIngestBatchOffsetsVerticallyAndIsolatesFailures(t *testing.T) {
	s := board.NewStore()
	results := IngestFiles(s, []FileInput{
		{Name: "a.png", MIMEType: "image/png", Content: bytes.NewReader([]byte{1})},
		{Name: "broken.pdf", MIMEType: "application/pdf", Content: failingReader{}},
		{Name: "b.mp4", MIMEType: "video/mp4", Content: bytes.NewReader([]byte{2})},
	}, board.Position{X: 0, Y: 0})

	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	require.Nil(t, results[1].Node)
	require.NoError(t, results[2].Err, "failure of one file must not abort the batch")

	// Only successful files consume a batch slot: a.png takes slot 0,
	// b.mp4 slot 1. Centered minus half height, plus one batch offset.
	require.Equal(t, float64(-100), results[0].Node.Position.Y)
	require.Equal(t, float64(-90+batchOffsetY), results[2].Node.Position.Y)
	require.Equal(t, 2, s.Len())
}

func TestIngestTextFileBecomesNote(t *testing.T) {
	s := board.NewStore()
	results := IngestFiles(s, []FileInput{
		{Name: "notes.txt", MIMEType: "text/plain", Content: strings.NewReader("remember this")},
	}, board.Position{})
	require.NoError(t, results[0].Err)
	require.Equal(t, board.KindText, results[0].Node.Kind)
	require.Equal(t, "remember this", results[0].Node.Text)
	require.Empty(t, results[0].Node.Data)
}

func TestIngestUnknownMIMEKeepsTrace(t *testing.T) {
	s := board.NewStore()
	results := IngestFiles(s, []FileInput{
		{Name: "model.blend", MIMEType: "application/x-blender", Content: bytes.NewReader([]byte{9})},
	}, board.Position{})
	require.NoError(t, results[0].Err)
	require.Equal(t, board.KindDocument, results[0].Node.Kind)
	require.Equal(t, "application/x-blender", results[0].Node.MIMEType)
}

func TestClassifyText(t *testing.T) {
	cases := []struct {
		in    string
		kind  board.Kind
		title string
	}{
		{"https://www.youtube.com/watch?v=abc123", board.KindEmbeddedVideo, "Youtube video"},
		{"https://youtu.be/abc123", board.KindEmbeddedVideo, "Youtube video"},
		{"https://www.tiktok.com/@user/video/1", board.KindLink, "Tiktok video"},
		{"https://www.instagram.com/p/xyz/", board.KindLink, "Instagram content"},
		{"https://example.com/article", board.KindLink, "Link"},
		{"just a plain thought", board.KindText, "Note"},
	}
	for _, tc := range cases {
		node := ClassifyText(tc.in)
		require.Equal(t, tc.kind, node.Kind, tc.in)
		require.Equal(t, tc.title, node.Title, tc.in)
		require.Equal(t, strings.TrimSpace(tc.in), node.Text, tc.in)
	}
}

func TestIngestTextPreservesPayload(t *testing.T) {
	s := board.NewStore()
	url := "https://www.youtube.com/watch?v=abc123"
	node, err := IngestText(s, url, board.Position{X: 300, Y: 200})
	require.NoError(t, err)
	require.Equal(t, board.KindEmbeddedVideo, node.Kind)
	require.Equal(t, url, node.Text)
	require.Contains(t, node.Title, "Youtube")
}

type fakeRecorder struct {
	startErr error
	data     []byte
	stopped  int
}

func (r *fakeRecorder) Start(context.Context) error { return r.startErr }
func (r *fakeRecorder) Stop(context.Context) ([]byte, string, error) {
	r.stopped++
	return r.data, "audio/webm", nil
}

func TestAudioCaptureLifecycle(t *testing.T) {
	rec := &fakeRecorder{data: []byte("opusdata")}
	ac := NewAudioCapture(func() Recorder { return rec })
	s := board.NewStore()

	require.NoError(t, ac.Start(context.Background()))
	require.True(t, ac.Recording())

	node, err := ac.Stop(context.Background(), s, board.Position{X: 120, Y: 40})
	require.NoError(t, err)
	require.False(t, ac.Recording())
	require.Equal(t, board.KindAudio, node.Kind)
	require.Equal(t, "audio/webm", node.MIMEType)
	require.Contains(t, node.Title, "Recording ")
	require.NotEmpty(t, node.Data)
}

func TestAudioCaptureStopAndReplace(t *testing.T) {
	first := &fakeRecorder{data: []byte("first")}
	second := &fakeRecorder{data: []byte("second")}
	recorders := []Recorder{first, second}
	i := 0
	ac := NewAudioCapture(func() Recorder { r := recorders[i]; i++; return r })
	s := board.NewStore()

	require.NoError(t, ac.Start(context.Background()))
	// Starting again must stop the prior recorder, never run two at once.
	require.NoError(t, ac.Start(context.Background()))
	require.Equal(t, 1, first.stopped)

	node, err := ac.Stop(context.Background(), s, board.Position{})
	require.NoError(t, err)
	require.Equal(t, []byte("second"), node.Data)
	require.Equal(t, 1, s.Len(), "discarded capture must not create a node")
}

func TestAudioCapturePermissionDenied(t *testing.T) {
	ac := NewAudioCapture(func() Recorder {
		return &fakeRecorder{startErr: fmt.Errorf("permission denied")}
	})
	s := board.NewStore()
	require.Error(t, ac.Start(context.Background()))
	require.False(t, ac.Recording())
	require.Equal(t, 0, s.Len())
	_, err := ac.Stop(context.Background(), s, board.Position{})
	require.Error(t, err)
}
