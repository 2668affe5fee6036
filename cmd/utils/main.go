package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/joho/godotenv"

	"github.com/appetiteclub/tableflow/cmd/utils/internal/commands"
)

const (
	appName    = "tableflow-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	command := os.Args[1]
	args := os.Args[2:]

	var role string
	if command == "token" {
		if len(args) == 0 {
			fmt.Println("token requires a role")
			os.Exit(1)
		}
		role, args = args[0], args[1:]
	}

	config, err := apt.LoadConfig("UTILS", args)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logger := apt.NewLogger(config.GetStringOrDef("log.level", "info"))
	ctx := context.Background()

	switch command {
	case "seed-demo":
		if err := commands.SeedDemo(ctx, config, logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("demo seeding completed")

	case "clear-demo":
		if err := commands.ClearDemo(ctx, config, logger); err != nil {
			log.Fatalf("Clear demo data failed: %v", err)
		}
		logger.Info("demo data cleared")

	case "reset-db":
		if err := commands.ResetDB(ctx, config, logger); err != nil {
			log.Fatalf("Database reset failed: %v", err)
		}
		logger.Info("database reset completed")

	case "token":
		ttl, err := time.ParseDuration(config.GetStringOrDef("token.ttl", commands.DefaultTokenTTL.String()))
		if err != nil {
			log.Fatalf("Invalid token.ttl: %v", err)
		}
		secret, _ := config.GetString("auth.jwt.secret")
		tok, err := commands.Token(secret, role, ttl)
		if err != nil {
			log.Fatalf("Cannot mint token: %v", err)
		}
		fmt.Println(tok)

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - TableFlow utility commands

Usage:
  %s <command> [options]

Commands:
  seed-demo      Create demo orders on the seeded tables and menu
  clear-demo     Remove demo orders and free their tables
  reset-db       Drop the TableFlow database (USE WITH CAUTION)
  token <role>   Print a development bearer token for role
  version        Print version information
  help           Show this help message

Environment Variables:
  UTILS_DB_MONGO_URL       MongoDB connection URL
  UTILS_DB_MONGO_NAME      Database name (default: tableflow)
  UTILS_AUTH_JWT_SECRET    Secret shared with the services, used by token
  UTILS_TOKEN_TTL          Token lifetime (default: 12h)
  UTILS_LOG_LEVEL          Log level: debug, info, error (default: info)

Examples:
  %s seed-demo
  %s token kitchen
  UTILS_DB_MONGO_URL=mongodb://localhost:27017 %s reset-db

`, appName, appName, appName, appName, appName)
}
