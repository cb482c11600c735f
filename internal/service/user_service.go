package service

import (
	"errors"
	"time"

	"smartdecor/internal/domain"
	"smartdecor/internal/models"
	"smartdecor/internal/repository"

	"gorm.io/gorm"
)

// ProfileUpdate carries optional profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	Address      *string
	Phone        *string
	Gender       *string
	DateOfBirth  *time.Time
	ProfileImage *string
}

type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) Get(id uint) (*models.User, error) {
	u, err := s.userRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *UserService) List(limit, offset int) ([]models.User, error) {
	return s.userRepo.List(limit, offset)
}

// Update applies a profile change to target on behalf of actor, who must be the target or an admin.
func (s *UserService) Update(actorID uint, actorRole domain.Role, targetID uint, in ProfileUpdate) (*models.User, error) {
	if actorID != targetID && actorRole != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	u, err := s.Get(targetID)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != u.Email {
			if _, err := s.userRepo.GetByEmail(email); err == nil {
				return nil, ErrEmailExists
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			u.Email = email
		}
	}
	setIfPresent(&u.Name, in.Name)
	setIfPresent(&u.Address, in.Address)
	setIfPresent(&u.Phone, in.Phone)
	setIfPresent(&u.Gender, in.Gender)
	setIfPresent(&u.ProfileImage, in.ProfileImage)
	if in.DateOfBirth != nil {
		u.DateOfBirth = in.DateOfBirth
	}
	if err := s.userRepo.Update(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Delete(actorID uint, actorRole domain.Role, targetID uint) error {
	if actorID != targetID && actorRole != domain.RoleAdmin {
		return ErrForbidden
	}
	err := s.userRepo.Delete(targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *UserService) SetFCMToken(userID uint, token string) error {
	return s.userRepo.UpdateFCMToken(userID, token)
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
