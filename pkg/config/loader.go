package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoaderConfig configures how configuration is loaded
type LoaderConfig struct {
	ConfigFile      string
	EnvironmentFile string
	ServiceName     string
}

// ConfigLoader fills a tagged struct from defaults, a YAML file, an
// environment file and the process environment, in that order.
type ConfigLoader struct {
	config LoaderConfig
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader(cfg LoaderConfig) *ConfigLoader {
	return &ConfigLoader{config: cfg}
}

// Load loads configuration into the provided struct
func (l *ConfigLoader) Load(target interface{}) error {
	if err := l.setDefaults(target); err != nil {
		return fmt.Errorf("failed to set defaults: %w", err)
	}

	if l.config.ConfigFile != "" {
		if err := l.loadFromYAML(target, l.config.ConfigFile); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if l.config.EnvironmentFile != "" {
		if err := l.loadEnvironmentFile(l.config.EnvironmentFile); err != nil {
			return fmt.Errorf("failed to load environment file: %w", err)
		}
	}

	if err := l.loadFromEnv(target); err != nil {
		return fmt.Errorf("failed to load from environment: %w", err)
	}

	return nil
}

func (l *ConfigLoader) setDefaults(target interface{}) error {
	return walkFields(reflect.ValueOf(target), "", func(field reflect.Value, sf reflect.StructField, _ string) error {
		def := sf.Tag.Get("default")
		if def == "" {
			return nil
		}
		if err := setFieldValue(field, def); err != nil {
			return fmt.Errorf("failed to set default for field %s: %w", sf.Name, err)
		}
		return nil
	})
}

func (l *ConfigLoader) loadFromYAML(target interface{}, filename string) error {
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil // optional
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// loadEnvironmentFile exports the variables of a dotenv file that the
// process environment does not already define.
func (l *ConfigLoader) loadEnvironmentFile(filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil // optional
	}

	vars, err := godotenv.Read(filename)
	if err != nil {
		return fmt.Errorf("failed to parse environment file %s: %w", filename, err)
	}

	for key, value := range vars {
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to export %s: %w", key, err)
			}
		}
	}
	return nil
}

// loadFromEnv applies environment variables. A field's variable comes from
// its env tag or, without one, from the upper-cased field path; a
// service-prefixed variable (MESA_PORT) wins over the plain one (PORT).
func (l *ConfigLoader) loadFromEnv(target interface{}) error {
	return walkFields(reflect.ValueOf(target), "", func(field reflect.Value, sf reflect.StructField, prefix string) error {
		envName := sf.Tag.Get("env")
		if envName == "" {
			envName = joinEnv(prefix, strings.ToUpper(sf.Name))
		}

		names := []string{envName}
		if l.config.ServiceName != "" {
			names = append([]string{strings.ToUpper(l.config.ServiceName) + "_" + envName}, names...)
		}

		for _, name := range names {
			if value, exists := os.LookupEnv(name); exists {
				if err := setFieldValue(field, value); err != nil {
					return fmt.Errorf("failed to set field %s from env %s: %w", sf.Name, name, err)
				}
				return nil
			}
		}
		return nil
	})
}

// walkFields calls fn for every settable leaf field of the struct behind v.
// prefix accumulates the upper-cased names of enclosing structs.
func walkFields(v reflect.Value, prefix string, fn func(reflect.Value, reflect.StructField, string) error) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		sf := t.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct || (field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct) {
			if err := walkFields(field, joinEnv(prefix, strings.ToUpper(sf.Name)), fn); err != nil {
				return err
			}
			continue
		}

		if err := fn(field, sf, prefix); err != nil {
			return err
		}
	}
	return nil
}

func joinEnv(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// setFieldValue sets a field value from a string
func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			field.SetBool(true)
		case "false", "0", "no", "off":
			field.SetBool(false)
		default:
			return fmt.Errorf("invalid boolean value: %s", value)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration value: %s", value)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer value: %s", value)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// FindConfigFile searches for <serviceName>.yaml in the working directory,
// ./config, ./configs, /etc/<serviceName> and ~/.<serviceName>.
func FindConfigFile(serviceName string) string {
	configName := serviceName + ".yaml"

	searchPaths := []string{
		configName,
		filepath.Join("config", configName),
		filepath.Join("configs", configName),
		filepath.Join("/etc", serviceName, configName),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, "."+serviceName, configName))
	}

	return firstExisting(searchPaths)
}

// FindEnvironmentFile searches for an environment file
func FindEnvironmentFile(serviceName string) string {
	envName := serviceName + ".env"

	return firstExisting([]string{
		".env",
		envName,
		filepath.Join("config", ".env"),
		filepath.Join("config", envName),
		filepath.Join("configs", ".env"),
		filepath.Join("configs", envName),
	})
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
