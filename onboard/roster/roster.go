// Package roster reads team rosters: one INI section per group, one key per
// member login whose value is the member's SSH public key.
//
//	[soup]
//	george = ssh-ed25519 AAAA... george@laptop
package roster

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Public keys routinely contain '=' and '#', so only the first '=' splits
// and inline comments are kept. A login listed more than once collects
// every key.
var loadOptions = ini.LoadOptions{
	KeyValueDelimiters:  "=",
	IgnoreInlineComment: true,
	AllowShadows:        true,
}

type Member struct {
	Login string
	// PublicKey holds one authorized_keys line per key, newline separated.
	PublicKey string
}

type Team struct {
	Group   string
	Members []Member
}

// Load reads a roster file. Teams and members keep their file order.
func Load(filePath string) ([]Team, error) {
	cfg, err := ini.LoadSources(loadOptions, filePath)
	if err != nil {
		return nil, err
	}
	return parse(cfg)
}

// Parse reads a roster from raw INI data.
func Parse(data []byte) ([]Team, error) {
	cfg, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, err
	}
	return parse(cfg)
}

func parse(cfg *ini.File) ([]Team, error) {
	teams := []Team{}
	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			if len(section.Keys()) > 0 {
				return nil, errors.New("roster entries must belong to a [group] section")
			}
			continue
		}

		team := Team{Group: name}
		for _, key := range section.Keys() {
			var pubs []string
			for _, value := range key.ValueWithShadows() {
				if pub := strings.TrimSpace(value); pub != "" {
					pubs = append(pubs, pub)
				}
			}
			if len(pubs) == 0 {
				return nil, fmt.Errorf("group %s: no public key for %s", name, key.Name())
			}
			team.Members = append(team.Members, Member{Login: key.Name(), PublicKey: strings.Join(pubs, "\n")})
		}
		teams = append(teams, team)
	}
	return teams, nil
}
