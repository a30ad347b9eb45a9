package api

import (
	"fmt"
	"net/http"
	"strings"

	"chatx/auth"
	"chatx/domain"
	apperrors "chatx/errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func respondErr(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"data": err.Error()})
}

// handleSignup validates the request, hashes the credential, and creates
// the user OFFLINE; connecting is a separate, later step.
func (s *Server) handleSignup(c *gin.Context) {
	var req auth.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"data": "malformed signup body"})
		return
	}
	if err := auth.ValidateSignup(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"data": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	user, err := s.users.CreateUser(domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	c.JSON(http.StatusCreated, gin.H{"data": user})
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignin checks the credential and issues a bearer token the client
// uses for REST calls and the websocket upgrade.
func (s *Server) handleSignin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"data": "malformed signin body"})
		return
	}

	user, err := s.users.FindByUsername(req.Username)
	if err != nil {
		respondErr(c, apperrors.ErrInvalidCredentials)
		return
	}
	ok, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		respondErr(c, apperrors.ErrInvalidCredentials)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.secret, s.tokenTTL)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user": user, "token": token}})
}

// handleUsersByStatus lists other users filtered by ONLINE/OFFLINE, the
// contact list the client builds rooms from.
func (s *Server) handleUsersByStatus(c *gin.Context) {
	status := domain.Status(strings.ToUpper(c.Param("status")))
	if status != domain.StatusOnline && status != domain.StatusOffline {
		c.JSON(http.StatusBadRequest, gin.H{
			"data": fmt.Sprintf("Bad Request: Include a filter status. Options: [%s %s]",
				domain.StatusOnline, domain.StatusOffline),
		})
		return
	}

	claims := currentClaims(c)
	users, err := s.users.QueryUsersByStatus(status, claims.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"data": "Not Found: Users were not found!"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (s *Server) handleUserByUsername(c *gin.Context) {
	user, err := s.users.FindByUsername(c.Param("username"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

type createRoomRequest struct {
	Users []domain.Member `json:"users"`
}

// handleCreateRoom writes the room record, then appends the membership ref
// to each member's user record. The per-member updates are independent
// writes: if some fail the room still stands, the response reports a
// partial write, and the next chat-list read re-derives a consistent view.
func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"data": "malformed room body"})
		return
	}

	claims := currentClaims(c)
	if !lo.ContainsBy(req.Users, func(m domain.Member) bool { return m.ID == claims.UserID }) {
		req.Users = append(req.Users, domain.Member{ID: claims.UserID, Username: claims.Username})
	}

	room, err := s.rooms.AddRoom(domain.Room{Users: req.Users})
	if err != nil {
		respondErr(c, err)
		return
	}

	var failed []string
	for _, member := range room.Users {
		if _, err := s.users.AppendRoomRef(member.ID, domain.RoomRef{ID: room.ID}); err != nil {
			s.log.Error("membership update failed", "room_id", room.ID, "user_id", member.ID, "error", err)
			failed = append(failed, member.ID)
		}
	}
	if len(failed) > 0 {
		c.JSON(apperrors.HTTPStatus(apperrors.ErrPartialWrite), gin.H{
			"data":   room,
			"error":  apperrors.ErrPartialWrite.Error(),
			"failed": failed,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": room})
}

// handleChatList resolves the caller's rooms and recipients. A user with
// no rooms yet gets an empty list, which is different from asking to
// resolve an explicit empty set.
func (s *Server) handleChatList(c *gin.Context) {
	claims := currentClaims(c)
	user, err := s.users.GetUser(claims.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if len(user.ChatRooms) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": []domain.ChatListEntry{}})
		return
	}

	chatList, err := s.resolver.ResolveChatList(user.ID, user.ChatRooms)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": chatList})
}

func (s *Server) handleMessages(c *gin.Context) {
	roomID := c.Param("roomId")
	if _, err := s.rooms.GetRoom(roomID); err != nil {
		respondErr(c, err)
		return
	}

	var cursor *string
	if q := c.Query("cursor"); q != "" {
		cursor = &q
	}
	messages, next, err := s.messages.GetMessages(roomID, cursor)
	if err != nil {
		respondErr(c, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"data": messages, "cursor": next})
}
