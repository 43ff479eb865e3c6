package rules

import (
	"github.com/spf13/viper"

	"github.com/mockwire/mockwire/internal/errors"
)

// ruleFile is the on-disk shape of a rule set.
type ruleFile struct {
	Rules []Rule `mapstructure:"rules"`
}

// Load reads a rule set from a YAML file and returns an engine over it.
func Load(path string) (*Engine, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "reading rules file").
			WithContext("path", path)
	}

	var file ruleFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "parsing rules file").
			WithContext("path", path)
	}

	for i := range file.Rules {
		if err := validate(&file.Rules[i]); err != nil {
			return nil, err
		}
	}

	return New(file.Rules), nil
}

func validate(r *Rule) error {
	switch r.Match.Mode {
	case "", "glob", "exact", "prefix", "regex":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown match mode %q", r.Match.Mode).
			WithContext("rule", r.Name)
	}
	if r.Respond.Status < 0 || r.Respond.Status > 599 {
		return errors.Newf(errors.ErrorTypeConfig, "status %d out of range", r.Respond.Status).
			WithContext("rule", r.Name)
	}
	return nil
}
