package fakebackend

import (
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
)

// Conversions from the model to wire DTOs. Callers hold the read lock.

func ts(t time.Time) apiclient.Timestamp { return apiclient.Timestamp{Time: t} }

func (s *state) shortUser(id string) apiclient.UserShortDto {
	u, ok := s.users[id]
	if !ok {
		return apiclient.UserShortDto{ID: id}
	}
	return apiclient.UserShortDto{ID: u.id, Username: u.username, Email: u.email}
}

func (s *state) userDto(u *user) apiclient.UserDto {
	return apiclient.UserDto{
		ID:       u.id,
		Username: u.username,
		Email:    u.email,
		Roles:    append([]apiclient.Role(nil), u.roles...),
	}
}

func (s *state) fileDto(f *file) apiclient.FileDto {
	return apiclient.FileDto{
		ID:        f.id,
		Owner:     s.shortUser(f.ownerID),
		Filename:  f.filename,
		FileType:  f.contentType,
		Size:      int64(len(f.data)),
		Version:   f.version,
		CreatedAt: ts(f.createdAt),
		UpdatedAt: ts(f.updatedAt),
	}
}

func (s *state) shortGroup(g *group) *apiclient.ShortGroupDto {
	return &apiclient.ShortGroupDto{ID: g.id, Name: g.name, Description: g.description}
}

func (s *state) groupDto(g *group) apiclient.GroupDto {
	dto := apiclient.GroupDto{
		ID:          g.id,
		Name:        g.name,
		Description: g.description,
		UserRoles:   make([]apiclient.UserGroupRoleShortDto, 0, len(g.members)),
	}
	for _, m := range g.members {
		short := s.shortUser(m.userID)
		dto.UserRoles = append(dto.UserRoles, apiclient.UserGroupRoleShortDto{
			ID:       m.id,
			User:     &short,
			Role:     m.role,
			JoinedAt: ts(m.joinedAt),
		})
	}
	for _, sh := range s.groupShares {
		if sh.groupID == g.id {
			dto.SharedFiles = append(dto.SharedFiles, s.groupShareDto(sh))
		}
	}
	return dto
}

func (s *state) userShareDto(sh userShare) apiclient.SharedFileWithUserDto {
	dto := apiclient.SharedFileWithUserDto{
		ID:         sh.id,
		SharedWith: s.shortUser(sh.userID),
		Permission: sh.permission,
		SharedAt:   ts(sh.sharedAt),
	}
	if f, ok := s.files[sh.fileID]; ok {
		dto.File = s.fileDto(f)
	}
	return dto
}

func (s *state) groupShareDto(sh groupShare) apiclient.SharedFileWithGroupDto {
	dto := apiclient.SharedFileWithGroupDto{
		ID:         sh.id,
		Permission: sh.permission,
		SharedAt:   ts(sh.sharedAt),
	}
	if f, ok := s.files[sh.fileID]; ok {
		dto.File = s.fileDto(f)
	}
	if g, ok := s.groups[sh.groupID]; ok {
		dto.Group = s.shortGroup(g)
	}
	return dto
}
