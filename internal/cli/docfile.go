package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jahawk44/Sun-Research-Tree/internal/document"
	"github.com/Jahawk44/Sun-Research-Tree/internal/session"
)

// isYAML reports whether path names a YAML document.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// readDocumentFile reads a JSON or YAML document, picked by extension.
// Decode failures carry MALFORMED_DOCUMENT; I/O failures carry no code.
func readDocumentFile(path string) ([]byte, document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, document.Document{}, fmt.Errorf("read document: %w", err)
	}
	var doc document.Document
	if isYAML(path) {
		doc, err = document.UnmarshalYAML(data)
	} else {
		doc, err = document.Unmarshal(data)
	}
	if err != nil {
		return data, document.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return data, doc, nil
}

// writeDocumentFile encodes doc by extension and replaces path through a
// temporary file in the same directory.
func writeDocumentFile(path string, doc document.Document) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = document.MarshalYAML(doc)
	} else {
		data, err = document.Marshal(doc)
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// newSession builds a session from the config.
func (o *RootOptions) newSession(extra ...session.Option) (*session.Session, error) {
	cfg := o.config()
	policy, err := cfg.DanglingPolicy()
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithLogger(o.logger()),
		session.WithGridSize(cfg.Layout.GridSize),
		session.WithNodeSize(cfg.Layout.NodeWidth, cfg.Layout.NodeHeight),
		session.WithCurveOffset(cfg.Layout.CurveOffset),
		session.WithDanglingPolicy(policy),
	}
	return session.New(append(opts, extra...)...), nil
}

// openDocument reads path into a new session. The caller closes the
// session.
func (o *RootOptions) openDocument(path string, extra ...session.Option) (*session.Session, error) {
	_, doc, err := readDocumentFile(path)
	if err != nil {
		return nil, err
	}
	sess, err := o.newSession(extra...)
	if err != nil {
		return nil, err
	}
	if err := sess.Load(doc); err != nil {
		sess.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	o.logger().Debug("document loaded", "path", path, "nodes", len(doc.Nodes), "connections", len(doc.Connections))
	return sess, nil
}
