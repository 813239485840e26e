package source

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	appLog "workoutcal/internal/log"
)

// Provider supplies the encoded (base64) workout document.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
	Encoded(ctx context.Context) (string, error)
}

//go:embed data/workouts.b64
var embeddedDocument string

// Embedded serves the document compiled into the binary.
type Embedded struct {
	// Data overrides the built-in document when non-empty.
	Data string
}

func (e Embedded) Name() string { return "embedded" }

func (e Embedded) Encoded(_ context.Context) (string, error) {
	if e.Data != "" {
		return e.Data, nil
	}
	return embeddedDocument, nil
}

// File reads the document from disk on every call.
type File struct {
	Path string
}

func (f File) Name() string { return "file:" + f.Path }

func (f File) Encoded(_ context.Context) (string, error) {
	if f.Path == "" {
		return "", errors.New("source file path is empty")
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("reading source file: %w", err)
	}
	appLog.Debug("source file read", "path", f.Path, "bytes", len(data))
	return string(data), nil
}

// Kind names accepted in configuration.
const (
	KindEmbedded = "embedded"
	KindFile     = "file"
	KindURL      = "url"
)

// Options selects and parameterizes a provider.
type Options struct {
	Kind     string
	Path     string
	URL      string
	CacheDir string
}

// New returns the provider described by opts.
func New(opts Options) (Provider, error) {
	switch opts.Kind {
	case "", KindEmbedded:
		return Embedded{}, nil
	case KindFile:
		if opts.Path == "" {
			return nil, errors.New("file source requires a path")
		}
		return File{Path: opts.Path}, nil
	case KindURL:
		if opts.URL == "" {
			return nil, errors.New("url source requires a url")
		}
		return NewHTTP(opts.URL, opts.CacheDir), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", opts.Kind)
	}
}
