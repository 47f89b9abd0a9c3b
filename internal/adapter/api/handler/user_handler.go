package handler

import (
	"github.com/labstack/echo/v4"

	"campuslink/internal/usecase"
	"campuslink/pkg/response"
)

type UserHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewUserHandler(chatUseCase *usecase.ChatUseCase) *UserHandler {
	return &UserHandler{
		chatUseCase: chatUseCase,
	}
}

// ListContacts returns the user directory minus the caller
func (h *UserHandler) ListContacts(c echo.Context) error {
	userID := c.Get("uid").(string)

	users, err := h.chatUseCase.ListContacts(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, users)
}

// ListChatCandidates returns peers the caller can start a new chat with,
// optionally filtered by name
func (h *UserHandler) ListChatCandidates(c echo.Context) error {
	userID := c.Get("uid").(string)
	search := c.QueryParam("search")

	users, err := h.chatUseCase.ListChatCandidates(c.Request().Context(), userID, search)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, users)
}
