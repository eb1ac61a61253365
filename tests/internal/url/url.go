package url

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cavaliergopher/grab/v3"
	"github.com/golang/glog"
)

// Fetch retrieves specified URL using GET or HEAD method and returns the body with the status code.
func Fetch(ctx context.Context, url, method string, skipCertVerify bool) (string, int, error) {
	if !strings.EqualFold(method, http.MethodGet) && !strings.EqualFold(method, http.MethodHead) {
		glog.Warningf("Unsupported method: %v", method)

		return "", 0, fmt.Errorf("unsupported method %v", method)
	}

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: skipCertVerify},
	}}

	glog.V(90).Infof("Attempt to retrieve %v with %s method", url, strings.ToUpper(method))

	request, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, nil)
	if err != nil {
		return "", 0, err
	}

	res, err := client.Do(request)
	if err != nil {
		glog.Warningf("Error accessing %s ; Reason %v", url, err)

		return "", 0, fmt.Errorf("error accessing %s ; Reason %w", url, err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		glog.Warningf("Error reading reply: %v", err)

		return "", 0, fmt.Errorf("error reading reply: %w", err)
	}

	glog.V(50).Infof("\tReply: %s", body)
	glog.V(50).Infof("\tStatus: %s", res.Status)

	return string(body), res.StatusCode, nil
}

// Download saves content from the specified URL to destination, which may be a file or a directory, and returns
// the path of the saved file.
func Download(ctx context.Context, url, destination string, skipCertVerify bool) (string, error) {
	grabClient := grab.NewClient()

	if skipCertVerify {
		httpClient, ok := grabClient.HTTPClient.(*http.Client)
		if !ok {
			return "", fmt.Errorf("error: received unexpected http client")
		}

		transport, ok := httpClient.Transport.(*http.Transport)
		if !ok {
			return "", fmt.Errorf("error: received unexpected http transport")
		}

		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	glog.V(50).Infof("Attempting to save content from %s into %s", url, destination)

	grabRequest, err := grab.NewRequest(destination, url)
	if err != nil {
		return "", err
	}

	grabRequest = grabRequest.WithContext(ctx)
	grabRequest.NoResume = true

	grabResponse := grabClient.Do(grabRequest)

	if err := grabResponse.Err(); err != nil {
		return "", err
	}

	glog.V(50).Infof("HTTP response status: %v", grabResponse.HTTPResponse.Status)

	return grabResponse.Filename, nil
}
