package auth

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoleRule maps one permission flag to the guild role names that grant it.
type RoleRule struct {
	Flag    string
	Pattern *regexp.Regexp
}

// RoleTable is evaluated in order; every flag in it appears in derived Roles.
type RoleTable []RoleRule

// DefaultRoleTable mirrors the guild's role naming.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		{Flag: "admin", Pattern: regexp.MustCompile(`^Admin`)},
		{Flag: "bureau", Pattern: regexp.MustCompile(`^Bureau`)},
		{Flag: "member", Pattern: regexp.MustCompile(`^(Membre|Member)`)},
		{Flag: "video", Pattern: regexp.MustCompile(`Vid[ée]o`)},
		{Flag: "pole_video", Pattern: regexp.MustCompile(`^P[ôo]le Vid[ée]o`)},
		{Flag: "pole_live", Pattern: regexp.MustCompile(`^P[ôo]le Live`)},
		{Flag: "pole_tech", Pattern: regexp.MustCompile(`^P[ôo]le Tech`)},
		{Flag: "pole_comm", Pattern: regexp.MustCompile(`^P[ôo]le Comm`)},
	}
}

type roleFile struct {
	Roles []struct {
		Flag    string `yaml:"flag"`
		Pattern string `yaml:"pattern"`
	} `yaml:"roles"`
}

// ParseRoleTable reads a YAML document of the form
//
//	roles:
//	  - flag: admin
//	    pattern: ^Admin
func ParseRoleTable(data []byte) (RoleTable, error) {
	var file roleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse role table: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, errors.New("role table is empty")
	}

	seen := make(map[string]bool, len(file.Roles))
	table := make(RoleTable, 0, len(file.Roles))
	for _, r := range file.Roles {
		flag := strings.TrimSpace(r.Flag)
		if flag == "" {
			return nil, errors.New("role table entry without flag")
		}
		if seen[flag] {
			return nil, fmt.Errorf("duplicate role flag %q", flag)
		}
		seen[flag] = true

		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", flag, err)
		}
		table = append(table, RoleRule{Flag: flag, Pattern: re})
	}
	return table, nil
}

// LoadRoleTable returns the default table when path is empty.
func LoadRoleTable(path string) (RoleTable, error) {
	if path == "" {
		return DefaultRoleTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role table: %w", err)
	}
	return ParseRoleTable(data)
}

// Flags returns the configured flag names in table order.
func (t RoleTable) Flags() []string {
	flags := make([]string, len(t))
	for i, r := range t {
		flags[i] = r.Flag
	}
	return flags
}

type Roles map[string]bool

// DeriveRoles sets a flag when at least one group name matches its pattern.
// Flags without a match are present and false.
func DeriveRoles(table RoleTable, groupNames []string) Roles {
	roles := make(Roles, len(table))
	for _, rule := range table {
		roles[rule.Flag] = false
		for _, name := range groupNames {
			if rule.Pattern.MatchString(name) {
				roles[rule.Flag] = true
				break
			}
		}
	}
	return roles
}

func (r Roles) Has(flag string) bool {
	return r[flag]
}

// HasAny reports whether any of flags is set.
func (r Roles) HasAny(flags ...string) bool {
	for _, f := range flags {
		if r[f] {
			return true
		}
	}
	return false
}

// Names returns the set flags, sorted.
func (r Roles) Names() []string {
	names := make([]string, 0, len(r))
	for flag, ok := range r {
		if ok {
			names = append(names, flag)
		}
	}
	sort.Strings(names)
	return names
}

// RolesFromNames builds Roles from a list of set flags, as stored in a session.
func RolesFromNames(table RoleTable, names []string) Roles {
	roles := make(Roles, len(table)+len(names))
	for _, rule := range table {
		roles[rule.Flag] = false
	}
	for _, n := range names {
		roles[n] = true
	}
	return roles
}

// GuildRole is a role object from the guild roles endpoint.
type GuildRole struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GuildMemberRoleNames keeps the guild roles the member holds and returns
// their names.
func GuildMemberRoleNames(memberRoleIDs []string, guildRoles []GuildRole) []string {
	held := make(map[string]bool, len(memberRoleIDs))
	for _, id := range memberRoleIDs {
		held[id] = true
	}
	names := make([]string, 0, len(memberRoleIDs))
	for _, role := range guildRoles {
		if held[role.ID] {
			names = append(names, role.Name)
		}
	}
	return names
}

var ErrMissingProviderID = errors.New("provider id missing from avatar url")

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// ProviderIDFromAvatar extracts the Discord user id from an avatar URL of
// the form https://cdn.discordapp.com/avatars/<id>/<hash>.png.
func ProviderIDFromAvatar(avatarURL string) (string, error) {
	parts := strings.Split(strings.TrimRight(avatarURL, "/"), "/")
	if len(parts) < 2 {
		return "", ErrMissingProviderID
	}
	id := parts[len(parts)-2]
	if !digitsOnly.MatchString(id) {
		return "", ErrMissingProviderID
	}
	return id, nil
}
