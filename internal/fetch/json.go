// Package fetch fournit des utilitaires légers et testables pour interroger
// des API HTTP JSON (Bot API du canal, service de transcription).
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxBytes  = 10_000_000
	DefaultUserAgent = "podscribe/1.0"
)

// Erreurs exportées
var (
	ErrStatus   = errors.New("unexpected HTTP status")
	ErrTooLarge = errors.New("response body too large")
)

// countingReader compte le nombre d'octets lus via Read.
type countingReader struct {
	R io.Reader
	N int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	if n > 0 {
		c.N += int64(n)
	}
	return n, err
}

// JSONInto exécute une requête HTTP et décode la réponse JSON directement
// dans dst (dst doit être un pointeur).
// - method : http.MethodGet ou http.MethodPost.
// - headers : en-têtes additionnels (ex: Authorization), peut être nil.
// - body : sérialisé en JSON si non nil (POST).
// - timeout : si <=0 on utilise DefaultTimeout.
// - maxBytes : limite de taille en octets ; si <=0 on utilise DefaultMaxBytes.
// Utilise un json.Decoder sur un reader limité et détecte le dépassement de
// maxBytes en vérifiant le compteur.
func JSONInto(ctx context.Context, method, rawURL string, headers map[string]string, body any, timeout time.Duration, maxBytes int64, dst any) error {
	// defaults
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	// valider l'URL tôt
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return fmt.Errorf("fetch json: invalid url %q: %w", rawURL, err)
	}

	// context avec timeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fetch json: encode body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return fmt.Errorf("fetch json: new request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch json: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch json: %w: %s", ErrStatus, resp.Status)
	}

	if resp.ContentLength > 0 && resp.ContentLength > maxBytes {
		return fmt.Errorf("fetch json: content-length %d exceeds limit %d", resp.ContentLength, maxBytes)
	}

	// reader qui limite ET compte les octets lus
	limitReader := io.LimitReader(resp.Body, maxBytes+1) // +1 pour détecter dépassement
	cr := &countingReader{R: limitReader}
	dec := json.NewDecoder(cr)

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("fetch json: decode: %w", err)
	}

	// si le decode a consommé maxBytes+1 octets => overflow
	if cr.N > maxBytes {
		return ErrTooLarge
	}

	return nil
}

// FetchJSONInto : GET + décodage JSON, cas le plus courant.
func FetchJSONInto(ctx context.Context, rawURL string, timeout time.Duration, maxBytes int64, dst any) error {
	return JSONInto(ctx, http.MethodGet, rawURL, nil, nil, timeout, maxBytes, dst)
}

// PostJSONInto : POST d'un corps JSON + décodage JSON de la réponse.
func PostJSONInto(ctx context.Context, rawURL string, headers map[string]string, body any, timeout time.Duration, maxBytes int64, dst any) error {
	return JSONInto(ctx, http.MethodPost, rawURL, headers, body, timeout, maxBytes, dst)
}

// GetJSONInto : GET avec en-têtes additionnels (ex: Authorization).
func GetJSONInto(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration, maxBytes int64, dst any) error {
	return JSONInto(ctx, http.MethodGet, rawURL, headers, nil, timeout, maxBytes, dst)
}
