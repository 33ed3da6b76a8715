package service

import (
	"context"
	"errors"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

const msgOwnerOnlyMembers = "Only the project owner can manage members"

// MemberService manages project memberships. Only the owner mutates them.
type MemberService struct {
	base
}

// List returns the members of a project. The caller must be the owner or a member.
func (s *MemberService) List(ctx context.Context, projectID, callerID int64) ([]*models.ProjectMember, error) {
	var members []*models.ProjectMember
	err := s.tx(ctx, "member_list", func(sess storage.Session) error {
		if _, err := loadAccessibleProject(ctx, sess, projectID, callerID); err != nil {
			return err
		}
		var err error
		members, err = sess.Members().ListByProject(ctx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []*models.ProjectMember{}
	}
	return members, nil
}

// Add makes userID a member of the project. An empty role means member.
// The owner and existing members cannot be added again.
func (s *MemberService) Add(ctx context.Context, projectID, userID int64, role string, callerID int64) (*models.ProjectMember, error) {
	r, err := ValidateRole(role)
	if err != nil {
		return nil, err
	}

	var member *models.ProjectMember
	err = s.tx(ctx, "member_add", func(sess storage.Session) error {
		project, err := loadOwnedProject(ctx, sess, projectID, callerID, msgOwnerOnlyMembers)
		if err != nil {
			return err
		}

		user, err := sess.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return newError(ErrNotFound, msgUserNotFound)
		}
		if project.IsOwner(userID) {
			return newError(ErrAlreadyMember, msgAlreadyMember)
		}

		existing, err := sess.Members().GetByProjectAndUser(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return newError(ErrAlreadyMember, msgAlreadyMember)
		}

		member = models.NewProjectMember(projectID, userID, r)
		if err := sess.Members().Add(ctx, member); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return newError(ErrAlreadyMember, msgAlreadyMember)
			}
			return err
		}
		member.Username = user.Username
		member.Name = user.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	changed("member", "create")
	return member, nil
}

// UpdateRole changes the role of membership memberID within the project.
func (s *MemberService) UpdateRole(ctx context.Context, projectID, memberID int64, role string, callerID int64) (*models.ProjectMember, error) {
	if role == "" {
		return nil, newError(ErrValidation, "role is required")
	}
	r, err := ValidateRole(role)
	if err != nil {
		return nil, err
	}

	var member *models.ProjectMember
	err = s.tx(ctx, "member_update", func(sess storage.Session) error {
		if _, err := loadOwnedProject(ctx, sess, projectID, callerID, msgOwnerOnlyMembers); err != nil {
			return err
		}
		member, err = loadMember(ctx, sess, projectID, memberID)
		if err != nil {
			return err
		}
		if err := sess.Members().UpdateRole(ctx, projectID, memberID, r); err != nil {
			return err
		}
		member.Role = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	changed("member", "update")
	return member, nil
}

// Remove deletes membership memberID from the project.
func (s *MemberService) Remove(ctx context.Context, projectID, memberID, callerID int64) error {
	err := s.tx(ctx, "member_remove", func(sess storage.Session) error {
		if _, err := loadOwnedProject(ctx, sess, projectID, callerID, msgOwnerOnlyMembers); err != nil {
			return err
		}
		if _, err := loadMember(ctx, sess, projectID, memberID); err != nil {
			return err
		}
		return sess.Members().Delete(ctx, projectID, memberID)
	})
	if err != nil {
		return err
	}

	changed("member", "delete")
	return nil
}

func loadMember(ctx context.Context, sess storage.Session, projectID, memberID int64) (*models.ProjectMember, error) {
	member, err := sess.Members().GetByID(ctx, projectID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, newError(ErrNotFound, msgMemberNotFound)
	}
	return member, nil
}
