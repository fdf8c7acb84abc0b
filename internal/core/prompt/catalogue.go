package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalogue []byte

// entry YAML 中單一模板的定義
type entry struct {
	Description  string   `yaml:"description"`
	Placeholders []string `yaml:"placeholders"`
	Template     string   `yaml:"template"`
}

// Catalogue 依階段名稱索引的模板集合，載入後唯讀
type Catalogue struct {
	templates    map[string]*Template
	descriptions map[string]string
}

// LoadCatalogue 載入內建模板，overridePath 不為空時以檔案中同名模板覆蓋
func LoadCatalogue(overridePath string) (*Catalogue, error) {
	c := &Catalogue{
		templates:    make(map[string]*Template),
		descriptions: make(map[string]string),
	}
	if err := c.merge(defaultCatalogue); err != nil {
		return nil, fmt.Errorf("failed to load built-in prompts: %w", err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt overrides: %w", err)
		}
		if err := c.merge(data); err != nil {
			return nil, fmt.Errorf("failed to load prompt overrides %s: %w", overridePath, err)
		}
	}

	return c, nil
}

// MustLoadDefault 載入內建模板，失敗時 panic（僅內建檔案損壞時會發生）
func MustLoadDefault() *Catalogue {
	c, err := LoadCatalogue("")
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalogue) merge(data []byte) error {
	var entries map[string]entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return err
	}

	for name, e := range entries {
		if e.Template == "" {
			return fmt.Errorf("%s: empty template", name)
		}
		declared := append([]string(nil), e.Placeholders...)
		actual := Placeholders(e.Template)
		sort.Strings(declared)
		sort.Strings(actual)
		if !reflect.DeepEqual(declared, actual) {
			return fmt.Errorf("%s: declared placeholders %v do not match template %v", name, declared, actual)
		}
		c.templates[name] = &Template{Name: name, Text: e.Template}
		c.descriptions[name] = e.Description
	}
	return nil
}

// Get 取得模板
func (c *Catalogue) Get(name string) (*Template, error) {
	t, ok := c.templates[name]
	if !ok {
		return nil, fmt.Errorf("prompt template %q not found", name)
	}
	return t, nil
}

// Names 所有模板名稱（排序後）
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description 模板說明
func (c *Catalogue) Description(name string) string {
	return c.descriptions[name]
}
