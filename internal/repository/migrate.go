package repository

import (
	"context"
	"fmt"
	"math"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	patientsTable = "patients"
	testsTable    = "test_entries"
	historyTable  = "conversation_history"
)

var (
	// PatientsColumns holds the columns for the "patients" table.
	PatientsColumns = []*schema.Column{
		{Name: "report_id", Type: field.TypeString, Size: 36},
		{Name: "name", Type: field.TypeString},
		{Name: "lab_no", Type: field.TypeString},
		{Name: "age", Type: field.TypeString},
		{Name: "gender", Type: field.TypeString},
		{Name: "collected_date", Type: field.TypeString},
		{Name: "reported_date", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	PatientsTable = &schema.Table{
		Name:       patientsTable,
		Columns:    PatientsColumns,
		PrimaryKey: []*schema.Column{PatientsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "patient_created_at", Columns: []*schema.Column{PatientsColumns[7]}},
		},
	}

	// TestEntriesColumns holds the columns for the "test_entries" table.
	TestEntriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "position", Type: field.TypeInt},
		{Name: "name", Type: field.TypeString},
		{Name: "result", Type: field.TypeString},
		{Name: "unit", Type: field.TypeString},
		{Name: "interval_lower", Type: field.TypeString, Nullable: true},
		{Name: "interval_upper", Type: field.TypeString, Nullable: true},
		{Name: "report_id", Type: field.TypeString, Size: 36},
	}
	TestEntriesTable = &schema.Table{
		Name:       testsTable,
		Columns:    TestEntriesColumns,
		PrimaryKey: []*schema.Column{TestEntriesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "test_entries_patients_tests",
				Columns:    []*schema.Column{TestEntriesColumns[7]},
				RefColumns: []*schema.Column{PatientsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "testentry_report_id_position", Unique: true, Columns: []*schema.Column{TestEntriesColumns[7], TestEntriesColumns[1]}},
		},
	}

	// ConversationHistoryColumns holds the columns for the "conversation_history" table.
	ConversationHistoryColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "position", Type: field.TypeInt},
		{Name: "role", Type: field.TypeString, Size: 16},
		{Name: "content", Type: field.TypeString, Size: math.MaxInt32},
		{Name: "report_id", Type: field.TypeString, Size: 36},
	}
	ConversationHistoryTable = &schema.Table{
		Name:       historyTable,
		Columns:    ConversationHistoryColumns,
		PrimaryKey: []*schema.Column{ConversationHistoryColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "conversation_history_patients_history",
				Columns:    []*schema.Column{ConversationHistoryColumns[4]},
				RefColumns: []*schema.Column{PatientsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "history_report_id_position", Columns: []*schema.Column{ConversationHistoryColumns[4], ConversationHistoryColumns[1]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		PatientsTable,
		TestEntriesTable,
		ConversationHistoryTable,
	}
)

func init() {
	TestEntriesTable.ForeignKeys[0].RefTable = PatientsTable
	ConversationHistoryTable.ForeignKeys[0].RefTable = PatientsTable
}

// Migrate creates or updates the tables the repositories use.
func Migrate(ctx context.Context, db *DB) error {
	m, err := schema.NewMigrate(db.Driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
