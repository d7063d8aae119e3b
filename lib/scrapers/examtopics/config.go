package examtopics

import (
	"fmt"
	"os"
	"sort"

	"certifyhub-backend/lib/configutil"

	"dario.cat/mergo"
)

// CertConfig identifies one certification on the target site and
// carries the URL shapes its pages follow. Empty URL fields fall back
// to the site-wide defaults.
type CertConfig struct {
	// short name used on the command line
	Name string `json:"name"`
	// provider slug as it appears in site URLs
	Provider string `json:"provider"`
	// exam slug as it appears in site URLs
	ExamSlug string `json:"examSlug"`
	// human readable title for output
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	// template with {provider}, {exam} and {page} placeholders
	ViewURLTemplate string `json:"viewUrlTemplate"`
	// template with {provider}, {exam}, {topic} and {question} placeholders
	DiscussionURLTemplate string `json:"discussionUrlTemplate"`
	// regex over discussion URLs capturing topic then question number
	DiscussionURLPattern string `json:"discussionUrlPattern"`
}

var builtinCerts = map[string]CertConfig{
	"terraform-associate": {
		Name:        "terraform-associate",
		Provider:    "hashicorp",
		ExamSlug:    "terraform-associate",
		DisplayName: "HashiCorp Certified: Terraform Associate",
		Description: "Infrastructure as code fundamentals with Terraform.",
	},
	"professional-machine-learning-engineer": {
		Name:        "professional-machine-learning-engineer",
		Provider:    "google",
		ExamSlug:    "professional-machine-learning-engineer",
		DisplayName: "Google Professional Machine Learning Engineer",
		Description: "Designing and productionizing ML systems on Google Cloud.",
	},
	"az-900": {
		Name:        "az-900",
		Provider:    "microsoft",
		ExamSlug:    "az-900",
		DisplayName: "Microsoft Azure Fundamentals (AZ-900)",
		Description: "Entry level Azure cloud concepts and services.",
	},
	"aws-certified-solutions-architect-associate-saa-c03": {
		Name:        "aws-certified-solutions-architect-associate-saa-c03",
		Provider:    "amazon",
		ExamSlug:    "aws-certified-solutions-architect-associate-saa-c03",
		DisplayName: "AWS Certified Solutions Architect - Associate (SAA-C03)",
		Description: "Designing resilient and cost effective architectures on AWS.",
	},
}

// LoadCertConfigs returns the built-in certifications merged with an
// optional certifications.json5 next to the working directory, where
// file entries win.
func LoadCertConfigs() (map[string]CertConfig, error) {
	certs := map[string]CertConfig{}
	for name, cfg := range builtinCerts {
		certs[name] = cfg
	}

	fromFile, err := configutil.ReadConfig[map[string]CertConfig]("certifications.json5")
	if os.IsNotExist(err) {
		return certs, nil
	}
	if err != nil {
		return nil, err
	}

	for name, cfg := range fromFile {
		if cfg.Name == "" {
			cfg.Name = name
		}
		if existing, ok := certs[name]; ok {
			err := mergo.Merge(&existing, cfg, mergo.WithOverride)
			if err != nil {
				return nil, err
			}
			certs[name] = existing
			continue
		}
		certs[name] = cfg
	}
	return certs, nil
}

// LookupCert resolves a certification by its short name.
func LookupCert(name string) (CertConfig, error) {
	certs, err := LoadCertConfigs()
	if err != nil {
		return CertConfig{}, err
	}
	cfg, ok := certs[name]
	if !ok {
		names := make([]string, 0, len(certs))
		for n := range certs {
			names = append(names, n)
		}
		sort.Strings(names)
		return CertConfig{}, fmt.Errorf("unknown certification %q, known: %v", name, names)
	}
	return cfg, nil
}
