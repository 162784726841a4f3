package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/store"
)

const teamCols = `t.id, t.event_id, t.user_id, t.role, t.status, t.can_manage_team, t.can_scan_qr, t.can_manage_tasks, t.assigned_by, t.created_at, t.updated_at`

// TeamRepository handles event team memberships.
type TeamRepository struct {
	pool *pgxpool.Pool
}

func scanMember(row pgx.Row) (*models.TeamMember, error) {
	var m models.TeamMember
	err := row.Scan(&m.ID, &m.EventID, &m.UserID, &m.Role, &m.Status, &m.CanManageTeam, &m.CanScanQR, &m.CanManageTasks,
		&m.AssignedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

// Create inserts a membership. A second row for (event,user) fails with store.ErrDuplicate.
func (r *TeamRepository) Create(ctx context.Context, m *models.TeamMember) error {
	const q = `INSERT INTO event_team (id, event_id, user_id, role, status, can_manage_team, can_scan_qr, can_manage_tasks, assigned_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, m.EventID, m.UserID, string(m.Role), string(m.Status),
		m.CanManageTeam, m.CanScanQR, m.CanManageTasks, m.AssignedBy).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return mapErr(err)
}

// GetByID returns a membership by ID.
func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TeamMember, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+teamCols+` FROM event_team t WHERE t.id = $1`, id))
}

// GetByEventAndUser returns the user's membership for an event.
func (r *TeamRepository) GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.TeamMember, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+teamCols+` FROM event_team t WHERE t.event_id = $1 AND t.user_id = $2`, eventID, userID))
}

// SetStatus applies a decision with one conditional update. Flags are replaced only when perms is set.
func (r *TeamRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.Status, perms *models.Permissions) (*models.TeamMember, error) {
	var manage, scan, tasks *bool
	if perms != nil {
		manage, scan, tasks = &perms.CanManageTeam, &perms.CanScanQR, &perms.CanManageTasks
	}
	const q = `UPDATE event_team t SET status = $2,
		can_manage_team = COALESCE($3::boolean, t.can_manage_team),
		can_scan_qr = COALESCE($4::boolean, t.can_scan_qr),
		can_manage_tasks = COALESCE($5::boolean, t.can_manage_tasks),
		updated_at = NOW()
		WHERE t.id = $1 AND (t.status = 'PENDING' OR t.status = $2)
		RETURNING ` + teamCols
	m, err := scanMember(r.pool.QueryRow(ctx, q, id, string(status), manage, scan, tasks))
	if errors.Is(err, store.ErrNotFound) {
		return nil, missOrConflict(ctx, r.pool, "event_team", id)
	}
	return m, err
}

// Delete removes the user's membership for an event.
func (r *TeamRepository) Delete(ctx context.Context, eventID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_team WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListByEvent returns the event's team with member profiles.
func (r *TeamRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.TeamMemberView, error) {
	q := `SELECT ` + teamCols + `, u.name, u.email
		FROM event_team t JOIN users u ON u.id = t.user_id
		WHERE t.event_id = $1
		ORDER BY t.role, t.created_at`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.TeamMemberView
	for rows.Next() {
		var v models.TeamMemberView
		m := &v.TeamMember
		err := rows.Scan(&m.ID, &m.EventID, &m.UserID, &m.Role, &m.Status, &m.CanManageTeam, &m.CanScanQR, &m.CanManageTasks,
			&m.AssignedBy, &m.CreatedAt, &m.UpdatedAt, &v.Name, &v.Email)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// ListPendingInvites returns invitations awaiting the user's answer.
func (r *TeamRepository) ListPendingInvites(ctx context.Context, userID uuid.UUID) ([]models.TeamMember, error) {
	q := `SELECT ` + teamCols + ` FROM event_team t
		WHERE t.user_id = $1 AND t.status = 'PENDING' AND t.assigned_by IS NOT NULL AND t.assigned_by <> t.user_id
		ORDER BY t.created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}
