package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

type Config struct {
	MetadataDB MySQL       `json:"metadata_db"`
	FileStore  GoogleDrive `json:"file_store"`
	Brevo      Brevo       `json:"brevo"`
	Sender     Sender      `json:"sender"`
	WebPages   WebPages    `json:"web_pages"`
	Dispatch   Dispatch    `json:"dispatch"`
}

type MySQL struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
}

func (mysql *MySQL) ToDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", mysql.Username, mysql.Password, mysql.Host, mysql.Port, mysql.Database)
}

type GoogleDrive struct {
	GoogleServiceAccount map[string]interface{} `json:"google_service_account"`
	AdminEmail           string                 `json:"admin_email"`
	BaseFolderID         string                 `json:"base_folder_id"`
}

type Brevo struct {
	APIKey string `json:"api_key"`
}

type Sender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type WebPages struct {
	ClaimPage string `json:"claim_page"`
}

type Dispatch struct {
	SendIntervalMs   int `json:"send_interval_ms"`
	MaxConcurrentRun int `json:"max_concurrent_run"`
}

func NewConfig() *Config {
	return &Config{
		MetadataDB: MySQL{
			Username: "",
			Password: "",
			Host:     "127.0.0.1",
			Port:     3306,
			Database: "certhub_db",
		},
		FileStore: GoogleDrive{
			AdminEmail:   "",
			BaseFolderID: "",
		},
		Brevo: Brevo{
			APIKey: "",
		},
		Sender: Sender{
			Email: "certhub@gmail.com",
			Name:  "CertHub",
		},
		WebPages: WebPages{
			ClaimPage: "http://localhost:3000/claim-certificate",
		},
		Dispatch: Dispatch{
			SendIntervalMs:   1000,
			MaxConcurrentRun: 10,
		},
	}
}

func (c *Config) Load(ctx context.Context, path string) error {
	if path == "" {
		log.Ctx(ctx).Warn().Msgf("empty config file")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Ctx(ctx).Warn().Msgf("config file does not exist, file path: %s", path)
			return nil
		}
		return err
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			log.Ctx(ctx).Error().Msgf("config file close failed, file path: %s", path)
		}
	}(f)

	p := json.NewDecoder(f)
	if err := p.Decode(&c); err != nil {
		return err
	}

	return nil
}
