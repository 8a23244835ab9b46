package sources

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/hash/sha256"
)

// Archive stores raw document bodies under
// {source}/{year}/{name}-{sha256[:12]}.{ext}. A nil Store disables writing
// but digests are still computed.
type Archive struct {
	Store  collector.BlobStore
	Hasher collector.Hasher
	Logger *zap.Logger
}

// ObjectPrefix is the digest-free start of every archive path for name.
func ObjectPrefix(unit collector.WorkUnit, name string) string {
	return fmt.Sprintf("%s/%s/%s-", unit.Source, strconv.Itoa(unit.Year), name)
}

// Put hashes body and archives it. Archive failures are logged, not
// returned, since the record is still valid without its raw copy.
func (a *Archive) Put(ctx context.Context, unit collector.WorkUnit, name, ext, contentType string, body []byte) (digest, uri string) {
	if a == nil || a.Hasher == nil {
		return "", ""
	}
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	digest, err := a.Hasher.Hash(body)
	if err != nil {
		logger.Warn("hash document failed", zap.String("unit", unit.Key()), zap.Error(err))
		return "", ""
	}
	if a.Store == nil {
		return digest, ""
	}
	path := ObjectPrefix(unit, name) + sha256.Short(digest, 12) + "." + ext
	uri, err = a.Store.PutObject(ctx, path, contentType, bytes.NewReader(body))
	if err != nil {
		logger.Warn("archive document failed", zap.String("unit", unit.Key()), zap.String("path", path), zap.Error(err))
		return digest, ""
	}
	return digest, uri
}
