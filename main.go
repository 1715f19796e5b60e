package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/CyberdineDevelopment/go-datakit/core/command"
	"github.com/CyberdineDevelopment/go-datakit/core/expr"
	"github.com/CyberdineDevelopment/go-datakit/core/schema"
	"github.com/CyberdineDevelopment/go-datakit/mssql"
	"github.com/CyberdineDevelopment/go-datakit/sqlite"
	"github.com/CyberdineDevelopment/go-datakit/utils"
)

type User struct {
	Id    int    `json:"Id,omitempty"`
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

func userEntities() map[string]*schema.EntityDefinition {
	return map[string]*schema.EntityDefinition{
		"Users": {
			Name: "Users",
			Fields: map[string]schema.FieldDefinition{
				"Id":    {Name: "Id", Identity: true},
				"Name":  {Name: "Name"},
				"Email": {Name: "Email", Nullable: true},
			},
		},
	}
}

func show(label string, tc *command.TranslatedCommand, err error) {
	if err != nil {
		log.Fatalf("%s: %v", label, err)
	}
	fmt.Printf("-- %s\n%s\n   params: %v\n\n", label, tc.Sql, tc.Values())
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	entities := userEntities()

	msCfg := mssql.DefaultConfig()
	msCfg.Mappings = map[string]string{"Users": "auth.Users"}
	ms := mssql.NewTranslator(msCfg, entities, logger)

	liteCfg := sqlite.DefaultConfig()
	liteCfg.LogTranslations = true
	lite := sqlite.NewTranslator(liteCfg, entities, logger)

	payload, err := utils.StructToPayload(User{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		log.Fatalf("failed to build payload: %v", err)
	}

	ins, err := command.NewInsert("primary", "Users", payload)
	if err != nil {
		log.Fatalf("failed to build insert: %v", err)
	}
	ins = ins.ReturnIdentity()

	q, err := command.NewQuery("primary", "Users")
	if err != nil {
		log.Fatalf("failed to build query: %v", err)
	}
	q = q.Where(expr.And(
		expr.Gt(expr.Field("Id"), expr.Value(0)),
		expr.Contains(expr.Field("Email"), expr.Value("example.com")),
	)).OrderByField(expr.Field("Name"))
	paged, err := q.Skip(0)
	if err != nil {
		log.Fatalf("failed to page query: %v", err)
	}
	paged, err = paged.Limit(10)
	if err != nil {
		log.Fatalf("failed to page query: %v", err)
	}

	del, err := command.NewDelete("primary", "Users")
	if err != nil {
		log.Fatalf("failed to build delete: %v", err)
	}
	del = del.Where(expr.Eq(expr.Field("Email"), expr.Value(nil)))
	del, err = del.SoftDelete("IsDeleted", true)
	if err != nil {
		log.Fatalf("failed to mark soft delete: %v", err)
	}

	fmt.Println("=== Transact-SQL ===")
	tc, err := ms.Translate(ins)
	show("insert returning identity", tc, err)
	tc, err = ms.Translate(paged)
	show("paged query", tc, err)
	tc, err = ms.Translate(del)
	show("soft delete", tc, err)

	fmt.Println("=== SQLite ===")
	insTC, err := lite.Translate(ins)
	show("insert returning identity", insTC, err)
	queryTC, err := lite.Translate(paged)
	show("paged query", queryTC, err)

	// The SQLite statements run unmodified against a live database.
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE "Users" (
		"Id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"Name" TEXT NOT NULL,
		"Email" TEXT
	)`); err != nil {
		log.Fatalf("failed to create table: %v", err)
	}

	var id int64
	if err := db.QueryRow(insTC.Sql, insTC.Values()...).Scan(&id); err != nil {
		log.Fatalf("failed to insert: %v", err)
	}
	fmt.Printf("inserted row with identity %d\n", id)

	rows, err := db.Query(queryTC.Sql, queryTC.Values()...)
	if err != nil {
		log.Fatalf("failed to query: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row User
		if err := rows.Scan(&row.Id, &row.Name, &row.Email); err != nil {
			log.Fatalf("failed to scan row: %v", err)
		}
		fmt.Printf("row: %+v\n", row)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("row iteration failed: %v", err)
	}
}
