package taskdb

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/molty-assistant/second-brain/domain"
)

// legacyHorizons is the schema-drift table: legacy documents encoded the time
// horizon in the status field, which the modern schema stores as priority.
var legacyHorizons = map[string]domain.TaskPriority{
	"now":   domain.PriorityNow,
	"next":  domain.PriorityNext,
	"later": domain.PriorityLater,
}

type legacyFrontmatter struct {
	Title     string `yaml:"title"`
	Status    string `yaml:"status"`
	Priority  string `yaml:"priority"`
	Assignee  string `yaml:"assignee"`
	Notes     string `yaml:"notes"`
	Created   string `yaml:"created"`
	Completed string `yaml:"completed"`
}

// migrateLegacy folds the markdown corpus into the collection. The canonical
// store is authoritative: a legacy document whose normalized title already
// exists is skipped, so repeated passes add nothing. A document that fails to
// parse is skipped with a warning and processing continues; reads never fail
// because of the corpus.
func (s *Store) migrateLegacy(tasks []domain.Task) ([]domain.Task, bool) {
	if s.legacyDir == "" {
		return tasks, false
	}
	entries, err := os.ReadDir(s.legacyDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("legacy corpus unreadable, skipping migration")
		}
		return tasks, false
	}

	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		seen[normalizeTitle(t.Title)] = true
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	changed := false
	for _, name := range names {
		task, ok := s.migrateDocument(filepath.Join(s.legacyDir, name))
		if !ok {
			continue
		}
		key := normalizeTitle(task.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		tasks = append(tasks, task)
		changed = true
	}
	return tasks, changed
}

func (s *Store) migrateDocument(path string) (domain.Task, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.WithError(err).WithField("file", path).Warn("skipping unreadable legacy document")
		return domain.Task{}, false
	}
	meta, body, err := parseFrontmatter(data)
	if err != nil {
		s.log.WithError(err).WithField("file", path).Warn("skipping malformed legacy document")
		return domain.Task{}, false
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = slugTitle(filepath.Base(path))
	}

	status, priority := remapLegacySchema(meta.Status, meta.Priority)

	mtime := time.Now().UTC()
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime().UTC()
	}
	created := parseLegacyTime(meta.Created, mtime)

	task := domain.Task{
		ID:       uuid.NewString(),
		Title:    title,
		Status:   status,
		Priority: priority,
		Assignee: strings.TrimSpace(meta.Assignee),
		Notes:    strings.TrimSpace(meta.Notes),
		Content:  strings.TrimSpace(body),
		Created:  created,
		Updated:  created,
	}
	if task.Assignee == "" {
		task.Assignee = DefaultAssignee
	}
	if task.Status == domain.TaskDone {
		completed := parseLegacyTime(meta.Completed, mtime)
		task.Completed = &completed
	}
	return task, true
}

// remapLegacySchema resolves status/priority drift: a horizon value in the
// status field moves to priority with status reset to todo; otherwise modern
// values pass through and anything else falls back to the defaults.
func remapLegacySchema(rawStatus, rawPriority string) (domain.TaskStatus, domain.TaskPriority) {
	status := domain.TaskTodo
	priority := domain.PriorityNext

	if horizon, ok := legacyHorizons[rawStatus]; ok {
		return status, horizon
	}
	if st := domain.TaskStatus(rawStatus); st.Valid() {
		status = st
	}
	if pr := domain.TaskPriority(rawPriority); pr.Valid() {
		priority = pr
	}
	return status, priority
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func slugTitle(filename string) string {
	slug := strings.TrimSuffix(filename, ".md")
	return strings.ReplaceAll(slug, "-", " ")
}

// parseLegacyTime accepts RFC 3339 or a bare date, falling back to the file
// modification time.
func parseLegacyTime(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC()
	}
	return fallback
}

// parseFrontmatter splits a markdown document into its YAML frontmatter and
// body. Documents without a frontmatter block yield empty metadata.
func parseFrontmatter(content []byte) (legacyFrontmatter, string, error) {
	var meta legacyFrontmatter
	text := string(content)
	if !strings.HasPrefix(text, "---") {
		return meta, text, nil
	}

	var front, body strings.Builder
	inFront := false
	closed := false
	lineNum := 0
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if lineNum == 1 && line == "---" {
			inFront = true
			continue
		}
		if inFront && line == "---" {
			inFront = false
			closed = true
			continue
		}
		if inFront {
			front.WriteString(line)
			front.WriteString("\n")
		} else if closed {
			if body.Len() > 0 {
				body.WriteString("\n")
			}
			body.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return legacyFrontmatter{}, "", err
	}
	if err := yaml.Unmarshal([]byte(front.String()), &meta); err != nil {
		return legacyFrontmatter{}, "", err
	}
	return meta, body.String(), nil
}
