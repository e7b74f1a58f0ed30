package credentials

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Environment variables holding the TP-Link cloud account used to
// authenticate against the plugs
const (
	UsernameEnv = "TPLINKUSER"
	PasswordEnv = "TPLINKPASSWORD"
)

// Config keys the environment variables are bound to
const (
	UsernameKey = "tplink.username"
	PasswordKey = "tplink.password"
)

// Credentials is the TP-Link account shared by every device connection.
// It is never modified once built.
type Credentials struct {
	username string
	password string
}

func New(username, password string) Credentials {
	return Credentials{username: username, password: password}
}

// FromConfig reads the account from cfg.  Missing values are not an error:
// the devices reject the handshake instead.
func FromConfig(cfg *viper.Viper) Credentials {
	return New(cfg.GetString(UsernameKey), cfg.GetString(PasswordKey))
}

// BindEnv binds the credential config keys to their environment variables
func BindEnv(cfg *viper.Viper) error {
	if err := cfg.BindEnv(UsernameKey, UsernameEnv); err != nil {
		return errors.Wrapf(err, "binding %s", UsernameEnv)
	}
	if err := cfg.BindEnv(PasswordKey, PasswordEnv); err != nil {
		return errors.Wrapf(err, "binding %s", PasswordEnv)
	}

	return nil
}

// LoadEnvFile reads KEY=value pairs from fileName and uses them for any
// credential variable not already present in the process environment.
// A missing file is ignored.
func LoadEnvFile(cfg *viper.Viper, fileName string) error {
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(fileName)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading env file %s", fileName)
	}

	for key, name := range map[string]string{UsernameKey: UsernameEnv, PasswordKey: PasswordEnv} {
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if env.IsSet(name) {
			cfg.SetDefault(key, env.GetString(name))
		}
	}

	return nil
}

func (c Credentials) Username() string {
	return c.username
}

func (c Credentials) Password() string {
	return c.password
}

func hashOf(s string) string {
	sum := sha1.Sum([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// obfuscate the password when stringified
//
func (c Credentials) String() string {
	return fmt.Sprintf("Username [%s] Password [%s]", c.username, hashOf(c.password))
}
