package service

import (
	"context"
	"strings"

	"github.com/linkpulse/internal/db"
	"gorm.io/gorm"
)

// UserPatch carries a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	Username  *string `validate:"omitnil,min=8,max=32"`
	Firstname *string `validate:"omitnil,min=1,max=32"`
	Lastname  *string `validate:"omitnil,min=1,max=32"`
	Password  *string `validate:"omitnil,min=12,max=128"`
}

// UserService wraps user related database operations.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService instance.
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// List returns every user ordered by id.
func (s *UserService) List(ctx context.Context) ([]db.User, error) {
	var users []db.User
	if err := s.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, storageError(err, nil)
	}
	return users, nil
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, id uint) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storageError(err, ErrUserNotFound)
	}
	return &user, nil
}

// Update changes the caller's own profile.
func (s *UserService) Update(ctx context.Context, requester Identity, patch UserPatch) (*db.User, error) {
	for _, field := range []*string{patch.Username, patch.Firstname, patch.Lastname} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Username != nil {
		updates["username"] = *patch.Username
	}
	if patch.Firstname != nil {
		updates["firstname"] = *patch.Firstname
	}
	if patch.Lastname != nil {
		updates["lastname"] = *patch.Lastname
	}
	if patch.Password != nil {
		hashed, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}

	var user db.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, requester.UserID).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}

		if name, ok := updates["username"]; ok && name != user.Username {
			var taken int64
			if err := tx.Model(&db.User{}).Where("username = ? AND id <> ?", name, user.ID).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrUsernameTaken
			}
		}

		if err := tx.Model(&db.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return err
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		return nil, storageError(err, ErrUserNotFound)
	}
	return &user, nil
}

// Delete removes the caller's account together with their posts and reactions,
// including reactions other users left on those posts.
func (s *UserService) Delete(ctx context.Context, requester Identity) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.First(&user, requester.UserID).Error; err != nil {
			return err
		}

		ownPosts := tx.Model(&db.Post{}).Select("id").Where("user_id = ?", user.ID)
		if err := tx.Where("post_id IN (?) OR user_id = ?", ownPosts, user.ID).Delete(&db.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&db.Post{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.User{}, user.ID).Error
	})
	return storageError(err, ErrUserNotFound)
}
