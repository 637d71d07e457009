// Command taskboard serves the kanban board API.
package main

import (
	"github.com/nimburion/taskboard/pkg/app"
	"github.com/nimburion/taskboard/pkg/cli"
)

func main() {
	cmd := cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:              "taskboard",
		Description:       "Kanban board API: users, boards, columns, tasks and file uploads",
		RunServer:         app.RunServer,
		RunMigrations:     app.RunMigrations,
		CheckDependencies: app.CheckDependencies,
	})
	cli.Execute(cmd)
}
