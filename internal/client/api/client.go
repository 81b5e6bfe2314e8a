// Package api es el cliente REST tipado del servidor caregiver-support.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"caregiver-support/internal/platform/httpclient"
)

var (
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrInvalid      = errors.New("api: invalid request")
)

// Paths fijos fuera de la familia /api/{resource}.
const (
	CareRecipientsPath = "/api/care-recipients"
	CareStatsTodayPath = "/api/care-stats/today"
	EmergencyInfoPath  = "/api/emergency-info"
)

// Resource normaliza "meals", "/meals" o "/api/meals" a "/api/meals".
func Resource(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "/")
	name = strings.TrimPrefix(name, "api/")
	return "/api/" + name
}

type Client struct {
	http *httpclient.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	hc, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	if hc.BaseURL == "" {
		return nil, errors.New("api: base url is required")
	}
	return &Client{http: hc}, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authenticated => hay token cargado (no valida expiración).
func (c *Client) Authenticated() bool {
	return c.Token() != ""
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	headers := map[string]string{}
	if tok := c.Token(); tok != "" {
		headers["Authorization"] = "Bearer " + tok
	}
	err := c.http.DoJSON(ctx, method, path, headers, in, out)
	switch httpclient.StatusOf(err) {
	case 0:
		return err
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case http.StatusBadRequest, http.StatusConflict:
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	default:
		return err
	}
}

type sessionResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Register crea la cuenta y deja la sesión iniciada.
func (c *Client) Register(ctx context.Context, email, name, password string) (User, error) {
	var out sessionResponse
	in := map[string]string{"email": email, "name": name, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return User{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out sessionResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return User{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

func (c *Client) ListCareRecipients(ctx context.Context) ([]CareRecipient, error) {
	var out []CareRecipient
	if err := c.do(ctx, http.MethodGet, CareRecipientsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCareRecipient(ctx context.Context, name string) (CareRecipient, error) {
	var out CareRecipient
	err := c.do(ctx, http.MethodPost, CareRecipientsPath, map[string]string{"name": name}, &out)
	return out, err
}

// UpdateCareRecipient: nil = no tocar.
func (c *Client) UpdateCareRecipient(ctx context.Context, id string, name, status *string) (CareRecipient, error) {
	in := map[string]any{}
	if name != nil {
		in["name"] = *name
	}
	if status != nil {
		in["status"] = *status
	}
	var out CareRecipient
	err := c.do(ctx, http.MethodPatch, CareRecipientsPath+"/"+url.PathEscape(id), in, &out)
	return out, err
}

func (c *Client) DeleteCareRecipient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, CareRecipientsPath+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListRecords(ctx context.Context, resource, careRecipientID string, opts ListOptions) ([]Record, error) {
	q := url.Values{}
	q.Set("careRecipientId", careRecipientID)
	if opts.From != nil {
		q.Set("from", opts.From.UTC().Format(time.RFC3339Nano))
	}
	if opts.To != nil {
		q.Set("to", opts.To.UTC().Format(time.RFC3339Nano))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	var out []Record
	if err := c.do(ctx, http.MethodGet, Resource(resource)+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRecord(ctx context.Context, resource, id string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodGet, Resource(resource)+"/"+url.PathEscape(id), nil, &out)
	return out, err
}

// CreateRecord: payload debe traer careRecipientId.
func (c *Client) CreateRecord(ctx context.Context, resource string, payload map[string]any) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, Resource(resource), payload, &out)
	return out, err
}

// UpdateRecord manda un merge patch: una clave con nil borra el campo.
func (c *Client) UpdateRecord(ctx context.Context, resource, id string, patch map[string]any) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPatch, Resource(resource)+"/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) DeleteRecord(ctx context.Context, resource, id string) error {
	return c.do(ctx, http.MethodDelete, Resource(resource)+"/"+url.PathEscape(id), nil, nil)
}

// TodayStats: tz vacío => UTC en el servidor.
func (c *Client) TodayStats(ctx context.Context, careRecipientID, tz string) (TodayStats, error) {
	q := url.Values{}
	q.Set("careRecipientId", careRecipientID)
	if tz != "" {
		q.Set("tz", tz)
	}
	var out TodayStats
	err := c.do(ctx, http.MethodGet, CareStatsTodayPath+"?"+q.Encode(), nil, &out)
	return out, err
}

// EmergencyInfo devuelve la vista bloqueada; ErrNotFound si no hay ficha.
func (c *Client) EmergencyInfo(ctx context.Context, careRecipientID string) (EmergencyInfo, error) {
	var out EmergencyInfo
	err := c.do(ctx, http.MethodGet, EmergencyInfoPath+"?careRecipientId="+url.QueryEscape(careRecipientID), nil, &out)
	return out, err
}

func (c *Client) CreateEmergencyInfo(ctx context.Context, careRecipientID, pin string, contents EmergencyContents) (EmergencyInfo, error) {
	in := struct {
		CareRecipientID string `json:"careRecipientId"`
		PIN             string `json:"pin,omitempty"`
		EmergencyContents
	}{careRecipientID, pin, contents}

	var out EmergencyInfo
	err := c.do(ctx, http.MethodPost, EmergencyInfoPath, in, &out)
	return out, err
}

// EmergencyInfoUpdate: nil = no tocar. NewPIN "" borra el PIN.
type EmergencyInfoUpdate struct {
	NewPIN   *string
	Contents *EmergencyContents
}

// UpdateEmergencyInfo re-verifica la credencial en el servidor; un
// desbloqueo local no alcanza. Credencial inválida => ErrForbidden.
func (c *Client) UpdateEmergencyInfo(ctx context.Context, id string, cred Credential, in EmergencyInfoUpdate) (UnlockedEmergencyInfo, error) {
	body := struct {
		Credential
		NewPIN   *string            `json:"newPin,omitempty"`
		Contents *EmergencyContents `json:"contents,omitempty"`
	}{cred, in.NewPIN, in.Contents}

	var out UnlockedEmergencyInfo
	err := c.do(ctx, http.MethodPatch, EmergencyInfoPath+"/"+url.PathEscape(id), body, &out)
	return out, err
}

// DeleteEmergencyInfo manda la credencial en el body del DELETE.
func (c *Client) DeleteEmergencyInfo(ctx context.Context, id string, cred Credential) error {
	return c.do(ctx, http.MethodDelete, EmergencyInfoPath+"/"+url.PathEscape(id), cred, nil)
}

func (c *Client) VerifyPIN(ctx context.Context, id, pin string) (VerifyResult, error) {
	var out VerifyResult
	err := c.do(ctx, http.MethodPost, EmergencyInfoPath+"/"+url.PathEscape(id)+"/verify-pin", map[string]string{"pin": pin}, &out)
	return out, err
}

func (c *Client) VerifyPassword(ctx context.Context, id, password string) (VerifyResult, error) {
	var out VerifyResult
	err := c.do(ctx, http.MethodPost, EmergencyInfoPath+"/"+url.PathEscape(id)+"/verify-password", map[string]string{"password": password}, &out)
	return out, err
}
