package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FileState mirrors the lifecycle of an uploaded file.
type FileState int

const (
	FileStateUnknown FileState = iota
	FileStateProcessing
	FileStateActive
	FileStateFailed
)

func (s FileState) String() string {
	switch s {
	case FileStateProcessing:
		return "PROCESSING"
	case FileStateActive:
		return "ACTIVE"
	case FileStateFailed:
		return "FAILED"
	default:
		return "UNSPECIFIED"
	}
}

// RemoteFile identifies an uploaded file.
type RemoteFile struct {
	Name     string
	URI      string
	MIMEType string
	State    FileState
}

// Chunks yields streamed response text. Next returns io.EOF once the stream
// completes.
type Chunks interface {
	Next() (string, error)
}

// Session is the remote multimodal backend used by Engine.
type Session interface {
	Upload(ctx context.Context, path, mimeType string) (RemoteFile, error)
	State(ctx context.Context, name string) (FileState, error)
	Stream(ctx context.Context, model string, file RemoteFile, system, query string) (Chunks, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Dialer opens a Session for an API key.
type Dialer func(ctx context.Context, apiKey string) (Session, error)

// DialGemini opens a Gemini session.
func DialGemini(ctx context.Context, apiKey string) (Session, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiSession{client: client}, nil
}

type geminiSession struct {
	client *genai.Client
}

func (s *geminiSession) Upload(ctx context.Context, path, mimeType string) (RemoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return RemoteFile{}, err
	}
	defer f.Close()
	file, err := s.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: displayName(path),
		MIMEType:    mimeType,
	})
	if err != nil {
		return RemoteFile{}, fmt.Errorf("upload: %w", err)
	}
	return toRemote(file), nil
}

func (s *geminiSession) State(ctx context.Context, name string) (FileState, error) {
	file, err := s.client.GetFile(ctx, name)
	if err != nil {
		return FileStateUnknown, err
	}
	return toRemote(file).State, nil
}

func (s *geminiSession) Stream(ctx context.Context, model string, file RemoteFile, system, query string) (Chunks, error) {
	gm := s.client.GenerativeModel(model)
	if strings.TrimSpace(system) != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	iter := gm.GenerateContentStream(ctx, genai.FileData{MIMEType: file.MIMEType, URI: file.URI}, genai.Text(query))
	return &geminiChunks{iter: iter}, nil
}

func (s *geminiSession) Delete(ctx context.Context, name string) error {
	return s.client.DeleteFile(ctx, name)
}

func (s *geminiSession) Close() error {
	return s.client.Close()
}

type geminiChunks struct {
	iter *genai.GenerateContentResponseIterator
}

func (c *geminiChunks) Next() (string, error) {
	resp, err := c.iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		break
	}
	return b.String(), nil
}

func toRemote(file *genai.File) RemoteFile {
	if file == nil {
		return RemoteFile{}
	}
	state := FileStateUnknown
	switch file.State {
	case genai.FileStateProcessing:
		state = FileStateProcessing
	case genai.FileStateActive:
		state = FileStateActive
	case genai.FileStateFailed:
		state = FileStateFailed
	}
	return RemoteFile{Name: file.Name, URI: file.URI, MIMEType: file.MIMEType, State: state}
}
