package jitter

import (
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

// RunConditions are the acquisition settings logged in the run database.
type RunConditions struct {
	StackConfig string `db:"StackConfig"`
	Polarity    string `db:"Polarity"`
	Thresholds  map[ChannelID]float64
}

type channelThresholdEntry struct {
	Channel   int     `db:"Channel"`
	Threshold float64 `db:"Threshold"`
}

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

func LoadRunConditions(db *sqlx.DB, runNumber int, verbosity int) (RunConditions, error) {
	conditions := RunConditions{Thresholds: make(map[ChannelID]float64)}

	query := "SELECT StackConfig, Polarity FROM RunConditions WHERE MinRun <= ? and MaxRun >= ?"
	if verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s [%d]", query, runNumber), "database")
	}
	if err := db.Get(&conditions, query, runNumber, runNumber); err != nil {
		return RunConditions{}, fmt.Errorf("error reading run conditions for run %d: %w", runNumber, err)
	}

	query = "SELECT Channel, Threshold FROM ChannelThresholds WHERE MinRun <= ? and MaxRun >= ? ORDER BY Channel"
	if verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s [%d]", query, runNumber), "database")
	}
	rows, err := db.Queryx(query, runNumber, runNumber)
	if err != nil {
		return RunConditions{}, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		entry := channelThresholdEntry{}
		if err := rows.StructScan(&entry); err != nil {
			return RunConditions{}, fmt.Errorf("error scanning DB row: %w", err)
		}
		conditions.Thresholds[ChannelID(entry.Channel)] = entry.Threshold
	}
	if err := rows.Err(); err != nil {
		return RunConditions{}, fmt.Errorf("error reading DB rows: %w", err)
	}

	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Run %d conditions: stack %s, polarity %s, %d thresholds",
			runNumber, conditions.StackConfig, conditions.Polarity, len(conditions.Thresholds)), "database")
	}
	return conditions, nil
}

// Apply overrides the configuration with the values found in the database.
// Empty database fields leave the configuration untouched.
func (rc RunConditions) Apply(config *Configuration) error {
	if rc.StackConfig != "" {
		config.StackConfig = rc.StackConfig
	}
	if rc.Polarity != "" {
		var p Polarity
		if err := json.Unmarshal([]byte(fmt.Sprintf("%q", rc.Polarity)), &p); err != nil {
			return &ConfigurationError{Field: "polarity", Reason: fmt.Sprintf("database value %q", rc.Polarity)}
		}
		config.Polarity = p
	}
	if len(rc.Thresholds) > 0 {
		thresholds := make(map[ChannelID]float64, len(config.Thresholds)+len(rc.Thresholds))
		for ch, t := range config.Thresholds {
			thresholds[ch] = t
		}
		for ch, t := range rc.Thresholds {
			thresholds[ch] = t
		}
		config.Thresholds = thresholds
	}
	return nil
}
