package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-multigraders/internal/config"
	"github.com/noah-isme/gema-multigraders/internal/database"
	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/repository"
	"github.com/noah-isme/gema-multigraders/internal/service"
)

const usage = `usage: gradectl <command> [flags]

commands:
  show  -area <id> -item <id>   print every submitted grade record of an item
  wipe  -area <id> -item <id>   delete all grade records of an item
  seed  -file <path>            load grading definitions from a TOML document
`

var errUsage = errors.New("invalid usage")

type toolkit struct {
	grading     service.GradingService
	definitions service.DefinitionService
	users       repository.UserRepository
	items       repository.GradingItemRepository
	logger      zerolog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		color.Red("failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL, database.DefaultPool)
	if err != nil {
		color.Red("failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		color.Red("failed to migrate database: %v", err)
		os.Exit(1)
	}

	if err := run(ctx, newToolkit(db, cfg.NotificationBaseURL, logger), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		color.Red("%v", err)
		os.Exit(1)
	}
}

// newToolkit wires the services without cache or fan-out; the CLI is a one-shot process.
func newToolkit(db *gorm.DB, linkBase string, logger zerolog.Logger) toolkit {
	validate := validator.New(validator.WithRequiredStructEnabled())
	users := repository.NewUserRepository(db)
	items := repository.NewGradingItemRepository(db)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, validate, logger)
	definitions := service.NewDefinitionService(repository.NewGradingDefinitionRepository(db), nil, 0, activity, validate, logger)

	return toolkit{
		grading: service.NewGradingService(
			definitions,
			service.GradingRepositories{Items: items, Records: repository.NewGradeRecordRepository(db)},
			service.NewUserDirectory(users, logger),
			notifications,
			activity,
			validate,
			linkBase,
			logger,
		),
		definitions: definitions,
		users:       users,
		items:       items,
		logger:      logger,
	}
}

func run(ctx context.Context, kit toolkit, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	command, rest := args[0], args[1:]
	flags := flag.NewFlagSet(command, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	areaID := flags.String("area", "", "grading area id")
	itemID := flags.String("item", "", "grading item id")
	file := flags.String("file", "", "seed document path")
	if err := flags.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	switch command {
	case "show":
		if *areaID == "" || *itemID == "" {
			return errUsage
		}
		view, err := kit.grading.View(ctx, service.SystemActor(), *areaID, *itemID, "review")
		if err != nil {
			return err
		}
		renderView(out, view)
		return nil
	case "wipe":
		if *areaID == "" || *itemID == "" {
			return errUsage
		}
		result, err := kit.grading.Wipe(ctx, service.SystemActor(), *areaID, *itemID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, color.GreenString("wiped %d grade record(s) from %s/%s", result.Deleted, *areaID, *itemID))
		return nil
	case "seed":
		if *file == "" {
			return errUsage
		}
		raw, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		doc, err := service.ParseSeedDocument(raw)
		if err != nil {
			return err
		}
		result, err := service.ApplySeedDocument(ctx, doc, kit.definitions, kit.users, kit.items, kit.logger)
		if err != nil {
			return err
		}
		renderSeed(out, result)
		return nil
	default:
		return errUsage
	}
}

func renderView(out io.Writer, view dto.GradingViewResponse) {
	fmt.Fprintln(out, color.CyanString("%s / %s (%s)", view.AreaID, view.ItemID, view.Status))
	if view.PublishedGrade != nil {
		fmt.Fprintf(out, "published grade: %s\n", formatGrade(view.PublishedGrade))
	} else {
		fmt.Fprintln(out, color.YellowString("final grade not yet published"))
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Grader", "Kind", "Grade", "Second Grader", "Visible", "Submitted"})
	for _, record := range view.Records {
		kind := record.Kind
		if record.IsPrimary {
			kind += " (primary)"
		}
		table.Append([]string{
			record.GraderName,
			kindColor(record.Kind)(kind),
			formatGrade(record.Grade),
			strconv.FormatBool(record.RequireSecondGrader),
			strconv.FormatBool(record.VisibleToStudents),
			record.SubmittedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}

func renderSeed(out io.Writer, result dto.SeedDefinitionsResponse) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Users", "Definitions", "Items"})
	table.Append([]string{
		strconv.Itoa(result.Users),
		strconv.Itoa(result.Definitions),
		strconv.Itoa(result.Items),
	})
	table.Render()
}

func kindColor(kind string) func(a ...interface{}) string {
	switch kind {
	case "final":
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	case "intermediate":
		return color.New(color.FgYellow).SprintFunc()
	default:
		return fmt.Sprint
	}
}

func formatGrade(grade *float64) string {
	if grade == nil {
		return "-"
	}
	return strconv.FormatFloat(*grade, 'f', -1, 64)
}
