package app

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/blog-account-service/internal/sdk/middleware"
	"github.com/nourabuild/blog-account-service/internal/sdk/models"
	"github.com/nourabuild/blog-account-service/internal/sdk/store"
	"github.com/nourabuild/blog-account-service/internal/services/sentry"
)

const (
	maxUploadSize = 10 << 20

	// maxProfileRequestSize leaves room for the text fields and multipart
	// framing around a photo of maxUploadSize.
	maxProfileRequestSize = maxUploadSize + 1<<20

	photoField = "file"
)

func (a *App) HandleUpdateProfile(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProfileRequestSize)
	}

	multipart := strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm)
	if multipart {
		if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(c, ErrFileTooLarge, nil)
				return
			}
			writeError(c, ErrUnmarshal, nil)
			return
		}
	}

	// An empty JSON body is an empty update.
	var req ProfileUpdateRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, ErrUnmarshal, nil)
		return
	}
	update := profileUpdate(req)

	if multipart {
		photoURL, ok := a.uploadProfilePhoto(c, userID)
		if !ok {
			return
		}
		if photoURL != "" {
			update.PhotoURL = &photoURL
		}
	}

	var user models.User
	if update.IsEmpty() {
		user, err = a.db.GetUserByID(c.Request.Context(), userID)
	} else {
		user, err = a.db.UpdateUser(c.Request.Context(), userID, update)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, ErrUserNotFound, nil)
			return
		}
		a.toSentry(c, "update_profile", "db", sentry.LevelError, err)
		writeError(c, ErrUpdateProfile, nil)
		return
	}

	c.JSON(http.StatusOK, UserResponse{Success: true, Message: "profile updated successfully", User: user})
}

// uploadProfilePhoto stores the optional photo part. It returns "" when no
// file was sent and false when a response has already been written.
func (a *App) uploadProfilePhoto(c *gin.Context, userID string) (string, bool) {
	fh, err := c.FormFile(photoField)
	if errors.Is(err, http.ErrMissingFile) {
		return "", true
	}
	if err != nil {
		writeError(c, ErrUnmarshal, nil)
		return "", false
	}
	if fh.Size > maxUploadSize {
		writeError(c, ErrFileTooLarge, nil)
		return "", false
	}

	// Nothing is uploaded for an account that no longer exists.
	if _, err := a.db.GetUserByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, ErrUserNotFound, nil)
			return "", false
		}
		a.toSentry(c, "update_profile", "db", sentry.LevelError, err)
		writeError(c, ErrUpdateProfile, nil)
		return "", false
	}

	f, err := fh.Open()
	if err != nil {
		a.toSentry(c, "update_profile", "open_file", sentry.LevelError, err)
		writeError(c, ErrUpstream, nil)
		return "", false
	}
	defer f.Close()

	if a.media == nil {
		a.toSentry(c, "update_profile", "upload", sentry.LevelError, errors.New("media uploader not configured"))
		writeError(c, ErrUpstream, nil)
		return "", false
	}

	url, err := a.media.UploadProfilePhoto(c.Request.Context(), userID, f)
	if err != nil {
		a.toSentry(c, "update_profile", "upload", sentry.LevelError, err)
		writeError(c, ErrUpstream, nil)
		return "", false
	}
	return url, true
}

func profileUpdate(req ProfileUpdateRequest) models.UpdateUser {
	return models.UpdateUser{
		FirstName:  nonBlank(req.FirstName),
		LastName:   nonBlank(req.LastName),
		Occupation: nonBlank(req.Occupation),
		Bio:        nonBlank(req.Bio),
		Instagram:  nonBlank(req.Instagram),
		Facebook:   nonBlank(req.Facebook),
		LinkedIn:   nonBlank(req.LinkedIn),
		GitHub:     nonBlank(req.GitHub),
	}
}

func nonBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (a *App) HandleListUsers(c *gin.Context) {
	users, err := a.db.ListUsers(c.Request.Context())
	if err != nil {
		a.toSentry(c, "list_users", "db", sentry.LevelError, err)
		writeError(c, ErrRetrieveUsers, nil)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	c.JSON(http.StatusOK, UsersResponse{
		Success: true,
		Message: "User list fetched successfully",
		Total:   len(users),
		Users:   users,
	})
}

func (a *App) HandleDeleteAccount(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		writeError(c, ErrUnauthorized, nil)
		return
	}

	if err := a.db.DeleteUserCascade(c.Request.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, ErrUserNotFound, nil)
			return
		}
		a.toSentry(c, "delete_account", "db", sentry.LevelError, err)
		writeError(c, ErrDeleteAccount, nil)
		return
	}

	clearSessionCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Account deleted successfully"})
}
