package readstore

import (
	"context"

	"possync/internal/infra"
	"possync/internal/infra/db"
	"possync/internal/pkg/pgconv"
	"possync/internal/usecase/shared"

	"github.com/google/uuid"
)

// PermissionReadStore resolves a user's current access from memberships
// and roles. An inactive or missing membership resolves to NOT_FOUND so
// callers treat "revoked" and "never existed" identically.
type PermissionReadStore struct {
	db db.DBTX
}

func NewPermissionReadStore(dbtx db.DBTX) shared.PermissionResolver {
	return &PermissionReadStore{db: dbtx}
}

const selectMembershipSQL = `
SELECT id FROM memberships
WHERE user_id = $1 AND business_id = $2 AND active = true`

const selectAccessSQL = `
SELECT r.id, rp.permission
FROM membership_roles mr
JOIN roles r ON r.id = mr.role_id
JOIN role_permissions rp ON rp.role_id = r.id
WHERE mr.membership_id = $1`

func (s *PermissionReadStore) ResolveUserAccess(ctx context.Context, userID, businessID uuid.UUID) (*shared.UserAccess, error) {
	var membershipID uuid.UUID
	err := s.db.QueryRow(ctx, selectMembershipSQL, userID, businessID).Scan(&membershipID)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("membership not active", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to resolve membership", err)
	}

	rows, err := s.db.Query(ctx, selectAccessSQL, membershipID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to resolve role permissions", err)
	}
	defer rows.Close()

	access := &shared.UserAccess{}
	seenRoles := make(map[string]struct{})
	seenPerms := make(map[string]struct{})
	for rows.Next() {
		var roleID uuid.UUID
		var permission string
		if err := rows.Scan(&roleID, &permission); err != nil {
			return nil, infra.WrapRepoErr("failed to scan role permission", err)
		}
		if _, ok := seenRoles[roleID.String()]; !ok {
			seenRoles[roleID.String()] = struct{}{}
			access.RoleIDs = append(access.RoleIDs, roleID.String())
		}
		if _, ok := seenPerms[permission]; !ok {
			seenPerms[permission] = struct{}{}
			access.Permissions = append(access.Permissions, permission)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate role permissions", err)
	}

	return access, nil
}
