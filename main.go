// ABOUTME: Entry point for the hirepipe staffing CRM
// ABOUTME: Routes to the MCP server, web dashboard, TUI or CLI commands
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/hirepipe/cli"
	"github.com/harperreed/hirepipe/config"
	"github.com/harperreed/hirepipe/handlers"
	"github.com/harperreed/hirepipe/logging"
	"go.uber.org/zap"
)

type command func(context.Context, *cli.App, []string) error

var crmCommands = map[string]command{
	"add-contact":     cli.AddContactCommand,
	"list-contacts":   cli.ListContactsCommand,
	"add-company":     cli.AddCompanyCommand,
	"list-companies":  cli.ListCompaniesCommand,
	"company-totals":  cli.CompanyTotalsCommand,
	"add-deal":        cli.AddDealCommand,
	"list-deals":      cli.ListDealsCommand,
	"score-deal":      cli.ScoreDealCommand,
	"seed-stages":     cli.SeedStagesCommand,
	"list-stages":     cli.ListStagesCommand,
	"add-task":        cli.AddTaskCommand,
	"log-activity":    cli.LogActivityCommand,
	"add-template":    cli.AddTemplateCommand,
	"render-template": cli.RenderTemplateCommand,
	"add-user":        cli.AddUserCommand,
	"list-users":      cli.ListUsersCommand,
}

var pipelineCommands = map[string]command{
	"funnel": cli.PipelineFunnelCommand,
	"graph":  cli.PipelineGraphCommand,
}

var calendarCommands = map[string]command{
	"list": cli.CalendarListCommand,
}

var syncCommands = map[string]command{
	"init":     cli.SyncInitCommand,
	"calendar": cli.SyncCalendarCommand,
	"status":   cli.SyncStatusCommand,
}

var sessionCommands = map[string]command{
	"show":  cli.SessionShowCommand,
	"set":   cli.SessionSetCommand,
	"clear": cli.SessionClearCommand,
}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: "+config.DefaultDBPath()+")")
	tenant := flag.String("tenant", "", "Tenant id (default: $"+config.EnvTenant+")")
	user := flag.String("user", "", "Acting salesperson id (default: $"+config.EnvUser+")")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("hirepipe version %s\n", handlers.Version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *tenant != "" {
		cfg.TenantID = *tenant
	}
	if *user != "" {
		cfg.UserID = *user
	}

	logger, err := logging.New(*verbose)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cmd, cmdArgs, ok := route(args)
	if !ok {
		fmt.Printf("Unknown command: %v\n\n", args)
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	logger.Debug("database opened", zap.String("path", cfg.DBPath), zap.String("tenant", cfg.TenantID))

	runErr := cmd(ctx, app, cmdArgs)
	if err := app.Close(); err != nil {
		logger.Warn("shutdown failed", zap.Error(err))
	}
	if runErr != nil {
		stop()
		log.Fatalf("Error: %v", runErr)
	}
}

// route resolves the command word(s) to a handler and its remaining args.
func route(args []string) (command, []string, bool) {
	groups := map[string]map[string]command{
		"crm":      crmCommands,
		"pipeline": pipelineCommands,
		"calendar": calendarCommands,
		"sync":     syncCommands,
		"session":  sessionCommands,
	}

	switch args[0] {
	case "mcp":
		return cli.MCPCommand, args[1:], true
	case "web":
		return cli.WebCommand, args[1:], true
	case "tui":
		return cli.TUICommand, args[1:], true
	}

	group, ok := groups[args[0]]
	if !ok || len(args) < 2 {
		return nil, nil, false
	}
	cmd, ok := group[args[1]]
	return cmd, args[2:], ok
}

func printUsage() {
	fmt.Printf(`hirepipe v%s - staffing CRM

USAGE:
  hirepipe [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: %s)
  --tenant <id>          Tenant id (default: $%s)
  --user <id>            Acting salesperson id (default: $%s)
  --verbose              Debug logging on stderr

COMMANDS:
  mcp                    Start MCP server on stdio
  web [--port <n>]       Start the web dashboard
  tui                    Start the terminal UI
  crm                    Contacts, companies, deals, tasks and templates
  pipeline               Funnel dashboard and graphs
  calendar               Merged calendar view
  sync                   Google Calendar sync
  session                Cached UI navigation state

CRM COMMANDS:
  hirepipe crm add-contact     --first <name> [--last] [--email] [--phone] [--title]
                               [--state] [--company <name>] [--owner <id>]
  hirepipe crm list-contacts   [--query] [--company] [--state] [--mine] [--owner] [--limit]
  hirepipe crm add-company     --name <name> [--domain] [--industry] [--state] [--notes] [--owner]
  hirepipe crm list-companies  [--query] [--state] [--mine] [--owner] [--limit]
  hirepipe crm company-totals  [--recompute] <id|name>   or   --all
  hirepipe crm add-deal        --name <name> --company <name> [--stage] [--contact <email>]
                               [--revenue] [--probability] [--close YYYY-MM-DD] [--division]
                               [--pay-rate] [--markup] [--start] [--d30] [--d90] [--d180]
  hirepipe crm list-deals      [--stage] [--company] [--mine] [--owner] [--ranked] [--limit]
  hirepipe crm score-deal      [--refresh] <id>
  hirepipe crm seed-stages     Install the default staffing funnel
  hirepipe crm list-stages     Show stages and their canonical mapping
  hirepipe crm add-task        --title <t> [--appointment] [--start] [--end] [--due]
                               [--assignee] [--deal] [--contact] [--company]
  hirepipe crm log-activity    --title <t> [--type email|call|meeting|note] [--at]
                               [--deal] [--contact] [--company]
  hirepipe crm add-template    --name <n> --subject <s> [--body | --body-file]
  hirepipe crm render-template --name <n> <contact-id>
  hirepipe crm add-user        --id <id> --name <name> [--email] [--role] [--inactive]
  hirepipe crm list-users      Show the salesperson directory

PIPELINE COMMANDS:
  hirepipe pipeline funnel     [--mine] [--owner] [--json]
  hirepipe pipeline graph      [--kind pipeline|accounts] [--mine] [--owner] [--output <file>]

CALENDAR COMMANDS:
  hirepipe calendar list       [--view month|day] [--date YYYY-MM-DD] [--mine] [--watch]

SYNC COMMANDS:
  hirepipe sync init           [--no-browser]
  hirepipe sync calendar       [--initial] [--signals=false]
  hirepipe sync status

SESSION COMMANDS:
  hirepipe session show
  hirepipe session set         [--tab] [--company-state] [--contact-state] [--calendar-view] [--search]
  hirepipe session clear

EXAMPLES:
  hirepipe --tenant acme crm seed-stages
  hirepipe --tenant acme --user u-alice crm add-deal --name "Warehouse ramp" \
      --company "Globex" --pay-rate 20 --markup 40 --start 2 --d180 5
  hirepipe --tenant acme --user u-alice pipeline funnel --mine
  hirepipe --tenant acme calendar list --view day

`, handlers.Version, config.DefaultDBPath(), config.EnvTenant, config.EnvUser)
}
