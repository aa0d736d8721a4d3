package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pavelanni/assessor/internal/service"
	"github.com/pavelanni/assessor/internal/store"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an exam against its blueprint and topic matrix",
		RunE:  runValidate,
	}
	f := cmd.Flags()
	f.String("db", "assessor.db", "SQLite database path")
	f.Int64("exam-id", 0, "Exam to validate (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	examID := v.GetInt64("exam-id")
	rep, err := service.New(db, db, nil).ValidateComposition(cmd.Context(), examID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := writeOutput(v.GetString("output"), data); err != nil {
		return err
	}
	if !rep.OK {
		slog.Warn("exam does not satisfy its blueprint", "exam_id", examID)
		return rep.Err()
	}
	return nil
}
