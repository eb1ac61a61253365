package url

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const caBody = "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"

func pkiServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ovirt-engine/services/pki-resource", func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Query().Get("resource") != "ca-certificate" {
			http.NotFound(writer, request)

			return
		}

		_, _ = writer.Write([]byte(caBody))
	})
	mux.HandleFunc("/ovirt-engine/services/health", func(writer http.ResponseWriter, _ *http.Request) {
		_, _ = writer.Write([]byte("DB Up!Welcome to Health Status!"))
	})

	server := httptest.NewTLSServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestFetch(t *testing.T) {
	server := pkiServer(t)

	body, status, err := Fetch(context.TODO(), server.URL+"/ovirt-engine/services/health", "get", true)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DB Up!Welcome to Health Status!", body)

	_, status, err = Fetch(context.TODO(), server.URL+"/missing", "HEAD", true)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFetchVerifiesCertificates(t *testing.T) {
	server := pkiServer(t)

	_, _, err := Fetch(context.TODO(), server.URL+"/ovirt-engine/services/health", "GET", false)

	assert.Error(t, err)
}

func TestFetchUnsupportedMethod(t *testing.T) {
	_, _, err := Fetch(context.TODO(), "http://127.0.0.1", "POST", true)

	assert.EqualError(t, err, "unsupported method POST")
}

func TestDownload(t *testing.T) {
	server := pkiServer(t)
	destination := filepath.Join(t.TempDir(), "engine-ca.pem")

	path, err := Download(context.TODO(),
		server.URL+"/ovirt-engine/services/pki-resource?resource=ca-certificate&format=X509-PEM-CA", destination, true)

	require.NoError(t, err)
	assert.Equal(t, destination, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, caBody, string(content))
}

func TestDownloadNotFound(t *testing.T) {
	server := pkiServer(t)

	_, err := Download(context.TODO(),
		server.URL+"/ovirt-engine/services/pki-resource?resource=unknown", filepath.Join(t.TempDir(), "x"), true)

	assert.Error(t, err)
}
