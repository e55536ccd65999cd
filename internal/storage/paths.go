// Package storage holds the object-key convention, the usage
// accountant, and the provider factory.
package storage

import (
	"context"
	"encoding/base64"
	"net/url"
	"path"
	"strings"

	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
)

// ObjectPath identifies one stored object. Keys render as
//
//	{area}/{accountId}/[{folder}/]{objectId}--{base64(urlEncode(name))}{ext}
//
// where name is the original file name without its extension. Objects
// written before the name suffix was introduced live under the legacy
// form {area}/{accountId}/[{folder}/]{objectId}{ext}.
type ObjectPath struct {
	Area         string
	AccountID    string
	Folder       string
	ObjectID     string
	OriginalName string
}

// Key returns the current-format object key.
func (p ObjectPath) Key() string {
	ext := path.Ext(p.OriginalName)
	base := strings.TrimSuffix(p.OriginalName, ext)
	name := p.ObjectID + "--" + encodeName(base) + ext
	return path.Join(p.Area, p.AccountID, p.Folder, name)
}

// LegacyKey returns the pre-rename object key.
func (p ObjectPath) LegacyKey() string {
	ext := path.Ext(p.OriginalName)
	return path.Join(p.Area, p.AccountID, p.Folder, p.ObjectID+ext)
}

func encodeName(name string) string {
	return base64.StdEncoding.EncodeToString([]byte(url.QueryEscape(name)))
}

// DecodeName reverses encodeName. Used when presenting stored objects
// back under their original file name.
func DecodeName(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return url.QueryUnescape(string(raw))
}

// Mover renames objects, falling back to the legacy key format for
// objects stored before the current convention.
type Mover struct {
	store ports.ObjectStore
	log   *logger.Logger
}

func NewMover(store ports.ObjectStore, log *logger.Logger) *Mover {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Mover{store: store, log: log.WithComponent("mover")}
}

// Move relocates src to dstKey. When src's current-format key does not
// exist, the legacy key is tried before giving up.
func (m *Mover) Move(ctx context.Context, src ObjectPath, dstKey string) error {
	err := m.store.Move(ctx, src.Key(), dstKey)
	if err == nil {
		return nil
	}
	if !ports.IsNotFound(err) {
		return err
	}

	m.log.FromContext(ctx).Debug("object missing under current key, trying legacy",
		"object_id", src.ObjectID,
		"legacy_key", src.LegacyKey(),
	)
	return m.store.Move(ctx, src.LegacyKey(), dstKey)
}
