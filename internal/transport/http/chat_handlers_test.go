package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lpusphere/sphere-server/internal/core"
)

func TestLoginAndListChats(t *testing.T) {
	env := newTestEnv(t)

	// Login through the endpoint, not the service, to cover the handler.
	reqBody := bytes.NewBufferString(`{"regNo":"12214001","password":"12214001"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", reqBody)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var authResp AuthResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &authResp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if authResp.Token == "" {
		t.Fatal("expected a token")
	}
	if authResp.User.Name != "Aarav Sharma" {
		t.Errorf("expected user name 'Aarav Sharma', got %q", authResp.User.Name)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer "+authResp.Token)
	resp = httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var chats ChatsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &chats); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(chats.Chats) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(chats.Chats))
	}
	if chats.Chats[0].ID != "CSE3A" {
		t.Errorf("expected chat CSE3A, got %q", chats.Chats[0].ID)
	}
	if chats.Chats[0].Unread != 0 {
		t.Errorf("expected 0 unread, got %d", chats.Chats[0].Unread)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)

	reqBody := bytes.NewBufferString(`{"regNo":"12214001","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", reqBody)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.Code)
	}
}

func TestChatsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.Code)
	}
}

func TestPostAndGetMessages(t *testing.T) {
	env := newTestEnv(t)
	token := loginToken(t, env, "12214001")

	reqBody := bytes.NewBufferString(`{"text":"hello class"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chats/CSE3A/messages", reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var msgResp MessageResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &msgResp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if msgResp.Message.Text != "hello class" {
		t.Errorf("expected text 'hello class', got %q", msgResp.Message.Text)
	}
	if msgResp.Message.SenderName != "Aarav Sharma" {
		t.Errorf("expected sender 'Aarav Sharma', got %q", msgResp.Message.SenderName)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats/CSE3A/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var history MessagesResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &history); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(history.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(history.Messages))
	}
	if history.Messages[0].ID != msgResp.Message.ID {
		t.Errorf("expected message id %d, got %d", msgResp.Message.ID, history.Messages[0].ID)
	}
}

func TestPostMessageStatusMapping(t *testing.T) {
	env := newTestEnv(t)
	memberToken := loginToken(t, env, "12214001")
	outsiderToken := loginToken(t, env, "99999999")

	tests := []struct {
		name   string
		token  string
		path   string
		body   string
		status int
	}{
		{"blank text", memberToken, "/api/chats/CSE3A/messages", `{"text":"   "}`, http.StatusBadRequest},
		{"missing text", memberToken, "/api/chats/CSE3A/messages", `{}`, http.StatusBadRequest},
		{"unknown class", memberToken, "/api/chats/NOPE/messages", `{"text":"hi"}`, http.StatusNotFound},
		{"non-member", outsiderToken, "/api/chats/CSE3A/messages", `{"text":"hi"}`, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+tt.token)
			resp := httptest.NewRecorder()
			env.handler.ServeHTTP(resp, req)

			if resp.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestGetMessagesRejectsNonMember(t *testing.T) {
	env := newTestEnv(t)
	token := loginToken(t, env, "99999999")

	req := httptest.NewRequest(http.MethodGet, "/api/chats/CSE3A/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", resp.Code)
	}
}

func TestListChatsShowsUnreadAndLastMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Aarav sends while Isha is away; her counter and preview update.
	aarav := core.Identity{RegNo: "12214001", Name: "Aarav Sharma", Role: "student"}
	if _, err := env.dispatcher.Dispatch(ctx, aarav, "CSE3A", "exam moved to friday"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	token := loginToken(t, env, "12214002")
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var chats ChatsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &chats); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(chats.Chats) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(chats.Chats))
	}
	chat := chats.Chats[0]
	if chat.Unread != 1 {
		t.Errorf("expected 1 unread, got %d", chat.Unread)
	}
	if chat.LastMessage != "exam moved to friday" {
		t.Errorf("expected last message preview, got %q", chat.LastMessage)
	}
	if chat.Time == "" {
		t.Error("expected a last message timestamp")
	}
}
