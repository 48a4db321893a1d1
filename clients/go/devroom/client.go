// Package devroom provides a client for the devroom collaboration
// server: the HTTP API plus the live project channel.
package devroom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/message"
)

// Client is a devroom API client.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client. Authenticate with Register or Login,
// or set Token directly.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request, attaching the bearer token when
// one is set.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("devroom error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// User is a user record as returned by the API.
type User struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// Project is a project record with its file tree.
type Project struct {
	ID       string        `json:"_id"`
	Name     string        `json:"name"`
	Users    []string      `json:"users"`
	FileTree filetree.Tree `json:"fileTree"`
}

// AuthResponse is the response from register and login.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and stores the issued token on the client.
func (c *Client) Register(email, password string) (*AuthResponse, error) {
	body, _ := json.Marshal(credentialsRequest{Email: email, Password: password})
	respBody, err := c.doRequest("POST", "/users/register", body)
	if err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return &resp, nil
}

// Login authenticates and stores the issued token on the client.
func (c *Client) Login(email, password string) (*AuthResponse, error) {
	body, _ := json.Marshal(credentialsRequest{Email: email, Password: password})
	respBody, err := c.doRequest("POST", "/users/login", body)
	if err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return &resp, nil
}

// Logout revokes the current token.
func (c *Client) Logout() error {
	_, err := c.doRequest("GET", "/users/logout", nil)
	if err == nil {
		c.Token = ""
	}
	return err
}

// CreateProject creates a project owned by the caller.
func (c *Client) CreateProject(name string) (*Project, error) {
	body, _ := json.Marshal(map[string]string{"name": name})
	respBody, err := c.doRequest("POST", "/projects/create", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Project Project `json:"project"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp.Project, nil
}

// GetProject fetches one project with its file tree.
func (c *Client) GetProject(projectID string) (*Project, error) {
	respBody, err := c.doRequest("GET", "/projects/get-project/"+projectID, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Project Project `json:"project"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp.Project, nil
}

// UpdateFileTree replaces the project's stored tree with the given
// snapshot.
func (c *Client) UpdateFileTree(projectID string, tree filetree.Tree) error {
	body, _ := json.Marshal(map[string]interface{}{
		"projectId": projectID,
		"fileTree":  tree,
	})
	_, err := c.doRequest("PUT", "/projects/update-file-tree", body)
	return err
}

// HistoryMessage is one persisted chat message.
type HistoryMessage struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	SenderID    string `json:"sender_id"`
	SenderEmail string `json:"sender_email"`
	Body        string `json:"body"`
	IsAI        bool   `json:"is_ai"`
	Timestamp   int64  `json:"ts"`
}

// GetMessages retrieves chat history for a project, oldest first.
func (c *Client) GetMessages(projectID string, limit int) ([]HistoryMessage, error) {
	path := fmt.Sprintf("/messages/project/%s?limit=%d", projectID, limit)
	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// GetResult runs a prompt through the server's generation side channel.
func (c *Client) GetResult(prompt string) (*message.StructuredResult, error) {
	path := "/ai/get-result?prompt=" + url.QueryEscape(prompt)
	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	result := message.Normalize(respBody)
	return &result, nil
}

// Session is a live connection to one project's room.
type Session struct {
	conn   *websocket.Conn
	events chan message.ChatEvent
	done   chan struct{}
}

// Connect joins the project's live channel. The returned session's
// Events channel closes when the connection drops.
func (c *Client) Connect(projectID string) (*Session, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/socket"
	q := u.Query()
	q.Set("projectId", projectID)
	q.Set("token", c.Token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connect failed: %s: %w", resp.Status, err)
		}
		return nil, err
	}

	s := &Session{
		conn:   conn,
		events: make(chan message.ChatEvent, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events streams room events. Message bodies arrive already normalized:
// AI events decode into structured results, human events into text.
func (s *Session) Events() <-chan message.ChatEvent {
	return s.events
}

// Send delivers one chat message to the room. The sender will not
// receive its own echo; render it locally.
func (s *Session) Send(text string) error {
	return s.conn.WriteJSON(map[string]string{"message": text})
}

// Close tears down the connection.
func (s *Session) Close() error {
	close(s.done)
	return s.conn.Close()
}

func (s *Session) readLoop() {
	defer close(s.events)
	for {
		var event message.ChatEvent
		if err := s.conn.ReadJSON(&event); err != nil {
			return
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}
