package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"

	h "github.com/lumenblog/lumen/helpers"
)

// UserType is a person who has signed in at least once
type UserType struct {
	ID           int64     `json:"id"`
	OpenID       string    `json:"openId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	Bio          string    `json:"bio"`
	LoginMethod  string    `json:"loginMethod"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastSignedIn time.Time `json:"lastSignedIn"`
}

// IsAdmin reports whether the user may author content
func (u UserType) IsAdmin() bool {
	return u.Role == h.RoleAdmin
}

const userColumns = `
       u.id
      ,u.open_id
      ,COALESCE(u.name, '')
      ,COALESCE(u.email, '')
      ,COALESCE(u.avatar, '')
      ,COALESCE(u.bio, '')
      ,COALESCE(u.login_method, '')
      ,u.role
      ,u.created_at
      ,u.updated_at
      ,u.last_signed_in`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (UserType, error) {
	var u UserType
	err := row.Scan(
		&u.ID,
		&u.OpenID,
		&u.Name,
		&u.Email,
		&u.Avatar,
		&u.Bio,
		&u.LoginMethod,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastSignedIn,
	)
	return u, err
}

// UpsertUser creates the user, or updates the fields supplied on an existing
// user with the same open id. The owner is always an admin.
func UpsertUser(e *Env, u UserType) (UserType, int, error) {
	if u.OpenID == "" {
		return UserType{}, http.StatusBadRequest,
			fmt.Errorf("User openId is required for upsert")
	}

	if u.Role == "" && e.OwnerOpenID != "" && u.OpenID == e.OwnerOpenID {
		u.Role = h.RoleAdmin
	}

	if u.LastSignedIn.IsZero() {
		u.LastSignedIn = e.now()
	}

	row := e.DB.QueryRow(`
-- Upsert user
INSERT INTO users AS u (
    open_id, name, email, avatar, bio,
    login_method, role, last_signed_in
) VALUES (
    $1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
    NULLIF($6, ''), COALESCE(NULLIF($7, ''), 'user'), $8
)
ON CONFLICT (open_id) DO UPDATE
   SET name = COALESCE(EXCLUDED.name, u.name)
      ,email = COALESCE(EXCLUDED.email, u.email)
      ,avatar = COALESCE(EXCLUDED.avatar, u.avatar)
      ,bio = COALESCE(EXCLUDED.bio, u.bio)
      ,login_method = COALESCE(EXCLUDED.login_method, u.login_method)
      ,role = CASE WHEN NULLIF($7, '') IS NULL THEN u.role ELSE EXCLUDED.role END
      ,last_signed_in = EXCLUDED.last_signed_in
      ,updated_at = NOW()
RETURNING`+userColumns,
		u.OpenID,
		u.Name,
		u.Email,
		u.Avatar,
		u.Bio,
		u.LoginMethod,
		u.Role,
		u.LastSignedIn,
	)

	user, err := scanUser(row)
	if err != nil {
		glog.Errorf("UpsertUser(%s) %+v", u.OpenID, err)
		return UserType{}, http.StatusInternalServerError,
			fmt.Errorf("Failed to upsert user")
	}

	purgeUser(e, user.OpenID)

	return user, http.StatusOK, nil
}

// GetUserByOpenID fetches a user by the identifier their provider gave them
func GetUserByOpenID(e *Env, openID string) (UserType, int, error) {
	mcKey := fmt.Sprintf(mcUserByOpenIDKey, openID)

	var user UserType
	if e.Shared.Get(mcKey, &user) {
		return user, http.StatusOK, nil
	}

	user, err := scanUser(e.DB.QueryRow(`
-- Get user by open id
SELECT`+userColumns+`
  FROM users u
 WHERE u.open_id = $1`,
		openID,
	))
	if err == sql.ErrNoRows {
		return UserType{}, http.StatusNotFound,
			fmt.Errorf("User with openId %s not found", openID)
	}
	if err != nil {
		glog.Errorf("GetUserByOpenID(%s) %+v", openID, err)
		return UserType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	e.Shared.Set(mcKey, user, mcUserTTL)

	return user, http.StatusOK, nil
}

// GetUser fetches a user by id
func GetUser(e *Env, id int64) (UserType, int, error) {
	user, err := scanUser(e.DB.QueryRow(`
-- Get user by id
SELECT`+userColumns+`
  FROM users u
 WHERE u.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return UserType{}, http.StatusNotFound,
			fmt.Errorf("User with ID %d not found", id)
	}
	if err != nil {
		glog.Errorf("GetUser(%d) %+v", id, err)
		return UserType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	return user, http.StatusOK, nil
}

// UpdateLastSignedIn records activity by a user
func UpdateLastSignedIn(e *Env, userID int64, seen time.Time) {
	_, err := e.DB.Exec(`
-- Update last signed in
UPDATE users
   SET last_signed_in = $2
 WHERE id = $1`,
		userID,
		seen,
	)
	if err != nil {
		glog.Errorf("UpdateLastSignedIn(%d) %+v", userID, err)
	}
}
