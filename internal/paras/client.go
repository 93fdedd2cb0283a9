package paras

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"paras/internal/models"

	"github.com/redis/go-redis/v9"
)

const roomsCacheKey = "paras:rooms"

// Client calls the remote PARAS REST API. The zero value is not usable; build
// one with NewClient. Client is safe for concurrent use; WithToken returns a
// shallow copy bound to a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache enables read-through caching of room listings.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// WithToken returns a copy of the client that sends the bearer token with
// every request.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// SystemStatus pings the API root.
func (c *Client) SystemStatus(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := c.doGet(ctx, "/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DBPing asks the backend whether its own database is reachable.
func (c *Client) DBPing(ctx context.Context) (bool, error) {
	var out struct {
		CanConnect bool `json:"canConnect"`
	}
	if err := c.doGet(ctx, "/db-ping", nil, &out); err != nil {
		return false, err
	}
	return out.CanConnect, nil
}

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the identity bound to the client's token.
func (c *Client) Me(ctx context.Context) (*models.Profile, error) {
	var out models.Profile
	if err := c.doGet(ctx, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	if out.Roles == nil {
		out.Roles = []string{}
	}
	return &out, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if c.readCache(ctx, roomsCacheKey, &rooms) {
		return rooms, nil
	}
	if err := c.doGet(ctx, "/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	c.writeCache(ctx, roomsCacheKey, rooms)
	return rooms, nil
}

func (c *Client) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := c.doGet(ctx, "/rooms/"+url.PathEscape(id), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) CreateRoom(ctx context.Context, req models.CreateRoomRequest) (*models.Room, error) {
	var room models.Room
	if err := c.doJSON(ctx, http.MethodPost, "/rooms", req, &room); err != nil {
		return nil, err
	}
	c.invalidateRooms(ctx)
	return &room, nil
}

func (c *Client) UpdateRoom(ctx context.Context, id string, req models.UpdateRoomRequest) (*models.Room, error) {
	var room models.Room
	if err := c.doJSON(ctx, http.MethodPut, "/rooms/"+url.PathEscape(id), req, &room); err != nil {
		return nil, err
	}
	c.invalidateRooms(ctx)
	return &room, nil
}

func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	c.invalidateRooms(ctx)
	return nil
}

// AvailableRooms queries rooms free in the window. Boundaries go over the
// wire as civil datetimes with seconds precision.
func (c *Client) AvailableRooms(ctx context.Context, start, end models.CivilTime) ([]models.RoomAvailability, error) {
	query := url.Values{}
	query.Set("start", start.String())
	query.Set("end", end.String())

	var rooms []models.RoomAvailability
	if err := c.doGet(ctx, "/rooms/available", query, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) ListLoans(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	if err := c.doGet(ctx, "/loans", nil, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

func (c *Client) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	var loan models.Loan
	if err := c.doGet(ctx, "/loans/"+url.PathEscape(id), nil, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *Client) CreateLoan(ctx context.Context, req models.CreateLoanRequest) (*models.Loan, error) {
	var loan models.Loan
	if err := c.doJSON(ctx, http.MethodPost, "/loans", req, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *Client) CancelLoan(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/loans/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ChangeLoanStatus(ctx context.Context, id string, req models.ChangeLoanStatusRequest) (*models.StatusChangeResult, error) {
	var result models.StatusChangeResult
	if err := c.doJSON(ctx, http.MethodPatch, "/loans/"+url.PathEscape(id)+"/status", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) LoanHistory(ctx context.Context, id string) ([]models.LoanStatusEvent, error) {
	var history []models.LoanStatusEvent
	if err := c.doGet(ctx, "/loans/"+url.PathEscape(id)+"/history", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paras api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return newHTTPError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) invalidateRooms(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, roomsCacheKey).Err()
}
