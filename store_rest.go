package keybot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	restKeysTable        = "keys"
	restCredentialsTable = "passwords"
)

// RESTStore implements CredentialStore over the Supabase PostgREST API. It has
// no transactions, so ProvisionCredential claims the key with a conditional
// PATCH and releases it again if the credential insert fails.
type RESTStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  Logger
}

var _ CredentialStore = (*RESTStore)(nil)

type RESTStoreOption func(*RESTStore)

func WithHTTPClient(client *http.Client) RESTStoreOption {
	return func(s *RESTStore) {
		if client != nil {
			s.client = client
		}
	}
}

func WithRESTLogger(logger Logger) RESTStoreOption {
	return func(s *RESTStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRESTStore creates a store for the project at baseURL, e.g.
// https://xyz.supabase.co
func NewRESTStore(baseURL, apiKey string, opts ...RESTStoreOption) *RESTStore {
	s := &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/") + "/rest/v1",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// keyRow and credentialRow are the REST payloads. They carry only the
// columns the hosted tables expose; ids are assigned by the database.
type keyRow struct {
	Key  string `json:"key"`
	Used bool   `json:"used"`
}

type credentialRow struct {
	Password string `json:"password"`
	HWID     string `json:"hwid"`
	LoggedIn bool   `json:"loggedIn"`
	UserID   string `json:"userID"`
}

const keyRowColumns = "key,used"

func (r keyRow) model() *RegistrationKey {
	return &RegistrationKey{Value: r.Key, Used: r.Used}
}

func newCredentialRow(c *Credential) credentialRow {
	return credentialRow{
		Password: c.Password,
		HWID:     c.HardwareID,
		LoggedIn: c.LoggedIn,
		UserID:   c.OwnerID,
	}
}

// restError is the error body PostgREST returns
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (s *RESTStore) FindKeyByValue(ctx context.Context, value string) (*RegistrationKey, error) {
	query := url.Values{}
	query.Set("key", "eq."+value)
	query.Set("select", keyRowColumns)
	query.Set("limit", "1")

	var rows []keyRow
	if err := s.do(ctx, http.MethodGet, restKeysTable, query, nil, "", &rows); err != nil {
		return nil, storeFailure(err, "find_key")
	}
	if len(rows) == 0 {
		return nil, ErrKeyNotFound
	}
	return rows[0].model(), nil
}

func (s *RESTStore) MarkKeyUsed(ctx context.Context, value string) error {
	rows, err := s.patchKey(ctx, value, "", true)
	if err != nil {
		return storeFailure(err, "mark_key_used")
	}
	if len(rows) == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *RESTStore) InsertCredential(ctx context.Context, credential *Credential) error {
	rows := []credentialRow{newCredentialRow(credential)}
	if err := s.do(ctx, http.MethodPost, restCredentialsTable, nil, rows, "return=minimal", nil); err != nil {
		return storeFailure(err, "insert_credential")
	}
	return nil
}

func (s *RESTStore) InsertKey(ctx context.Context, key *RegistrationKey) error {
	rows := []keyRow{{Key: key.Value, Used: key.Used}}
	if err := s.do(ctx, http.MethodPost, restKeysTable, nil, rows, "return=minimal", nil); err != nil {
		return storeFailure(err, "insert_key")
	}
	return nil
}

func (s *RESTStore) ProvisionCredential(ctx context.Context, value string, credential *Credential) error {
	claimed, err := s.patchKey(ctx, value, "is.false", true)
	if err != nil {
		return storeFailure(err, "claim_key")
	}
	if len(claimed) == 0 {
		return ErrKeyUsed
	}

	if err := s.InsertCredential(ctx, credential); err != nil {
		// the caller may have cancelled, the release must still go out
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, relErr := s.patchKey(releaseCtx, value, "is.true", false); relErr != nil {
			s.logger.Error("failed to release registration key after credential insert failure",
				"key", value, "error", relErr)
		}
		return err
	}

	return nil
}

// patchKey sets used on the key, optionally filtered on the current used
// value, and returns the updated rows.
func (s *RESTStore) patchKey(ctx context.Context, value, usedFilter string, used bool) ([]keyRow, error) {
	query := url.Values{}
	query.Set("key", "eq."+value)
	if usedFilter != "" {
		query.Set("used", usedFilter)
	}
	query.Set("select", keyRowColumns)

	var rows []keyRow
	body := map[string]bool{"used": used}
	if err := s.do(ctx, http.MethodPatch, restKeysTable, query, body, "return=representation", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RESTStore) do(ctx context.Context, method, table string, query url.Values, body any, prefer string, out any) error {
	endpoint := s.baseURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build store request")
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "store request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr restError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &apiErr)
		return goerrors.New(fmt.Sprintf("store responded with status %d", resp.StatusCode), goerrors.CategoryInternal).
			WithTextCode(TextCodeStoreFailure).
			WithMetadata(map[string]any{
				"table":   table,
				"method":  method,
				"status":  resp.StatusCode,
				"code":    apiErr.Code,
				"message": apiErr.Message,
			})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode store response")
	}
	return nil
}
