// Package repository implements the stores on PostgreSQL through sqlx.
package repository

import (
	"github.com/flowhq/flow/internal/infrastructure/database"
	"github.com/flowhq/flow/internal/ports"
)

// NewRepositories wires every postgres repository to one connection pool.
func NewRepositories(db *database.DB) *ports.Repositories {
	return &ports.Repositories{
		Users:       NewUserRepository(db.DB),
		Projects:    NewProjectRepository(db),
		Tasks:       NewTaskRepository(db.DB),
		Invitations: NewInvitationRepository(db.DB),
		Activity:    NewActivityRepository(db.DB),
	}
}
