package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

func newTestStore(t *testing.T, handler http.Handler, cfg Config) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, cfg, nil)
	require.NoError(t, err)
	return store
}

func TestPutObjectUploadsWithPrefix(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/archive-bucket/o")
		assert.Equal(t, "raw/toyota_pdf/2024/T-MMS-24Camry-0123456789ab.pdf", r.URL.Query().Get("name"))
		assert.Equal(t, "0", r.URL.Query().Get("ifGenerationMatch"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "%PDF-1.7")
		assert.Contains(t, string(body), "application/pdf")

		fmt.Fprintln(w, `{"name":"raw/toyota_pdf/2024/T-MMS-24Camry-0123456789ab.pdf","bucket":"archive-bucket"}`)
	})
	store := newTestStore(t, handler, Config{Bucket: "archive-bucket", Prefix: "/raw/"})

	uri, err := store.PutObject(context.Background(), "toyota_pdf/2024/T-MMS-24Camry-0123456789ab.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "gs://archive-bucket/raw/toyota_pdf/2024/T-MMS-24Camry-0123456789ab.pdf", uri)
}

func TestPutObjectTreatsExistingObjectAsSuccess(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		fmt.Fprintln(w, `{"error":{"code":412,"message":"conditionNotMet"}}`)
	})
	store := newTestStore(t, handler, Config{Bucket: "archive-bucket"})

	uri, err := store.PutObject(context.Background(), "fueleconomy/2024/x.json", "", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, "gs://archive-bucket/fueleconomy/2024/x.json", uri)
}

func TestPutObjectSurfacesServerErrors(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprintln(w, `{"error":{"code":403,"message":"forbidden"}}`)
	})
	store := newTestStore(t, handler, Config{Bucket: "archive-bucket"})

	_, err := store.PutObject(context.Background(), "a/b.pdf", "", strings.NewReader("x"))
	require.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{Bucket: "b"}, nil)
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	_, err = New(client, Config{}, nil)
	require.Error(t, err)

	s, err := New(client, Config{Bucket: "b"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.PutObject(context.Background(), "", "", strings.NewReader(""))
	require.Error(t, err)
}

func TestFindObjectDownloadsLastMatch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/b/archive-bucket/o"):
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("prefix") != "raw/toyota_pdf/2024/T-MMS-24Camry-" {
				fmt.Fprintln(w, `{"kind":"storage#objects"}`)
				return
			}
			fmt.Fprintln(w, `{"kind":"storage#objects","items":[`+
				`{"name":"raw/toyota_pdf/2024/T-MMS-24Camry-bbbbbbbbbbbb.pdf","bucket":"archive-bucket"},`+
				`{"name":"raw/toyota_pdf/2024/T-MMS-24Camry-aaaaaaaaaaaa.pdf","bucket":"archive-bucket"}]}`)
		case strings.HasSuffix(r.URL.Path, "raw/toyota_pdf/2024/T-MMS-24Camry-bbbbbbbbbbbb.pdf"):
			_, _ = io.WriteString(w, "%PDF-1.7")
		default:
			http.NotFound(w, r)
		}
	})
	store := newTestStore(t, handler, Config{Bucket: "archive-bucket", Prefix: "raw"})

	uri, body, err := store.FindObject(context.Background(), "toyota_pdf/2024/T-MMS-24Camry-")
	require.NoError(t, err)
	assert.Equal(t, "gs://archive-bucket/raw/toyota_pdf/2024/T-MMS-24Camry-bbbbbbbbbbbb.pdf", uri)
	assert.Equal(t, "%PDF-1.7", string(body))

	_, _, err = store.FindObject(context.Background(), "toyota_pdf/2024/T-MMS-24RAV4-")
	require.ErrorIs(t, err, collector.ErrObjectNotFound)
}
