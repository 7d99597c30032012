package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowhq/flow/cmd/api/commands"
)

// @title Flow API
// @version 1.0
// @description Multi-tenant Kanban boards with tasks, invitations and analytics

// @contact.name Flow Support
// @contact.url https://github.com/flowhq/flow

// @license.name MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name session
// @description Signed session issued by /auth/login and /auth/signup.

func main() {
	rootCmd := &cobra.Command{
		Use:   "flow",
		Short: "Flow API Server",
		Long:  `Flow is a multi-tenant Kanban service: projects with configurable columns, tasks with ticket ids, team invitations and dashboard analytics.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewInvitationsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
