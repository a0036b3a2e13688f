package alfred

import (
	"fmt"
	"strings"
)

const scriptHeader = "##AlfredToDo 3.0"

// Script serializes the job to an Alfred job script. Output is deterministic:
// fields are written in a fixed order and tasks in insertion order.
func (j *Job) Script() string {
	var b strings.Builder
	b.WriteString(scriptHeader)
	b.WriteString("\n\nJob")
	writeField(&b, "title", j.Title)
	if j.Priority > 0 {
		fmt.Fprintf(&b, " -priority %d", j.Priority)
	}
	writeField(&b, "service", j.Service)
	writeList(&b, "envkey", j.Envkey)
	writeField(&b, "metadata", j.Metadata)
	writeField(&b, "comment", j.Comment)
	writeField(&b, "spoolcwd", j.SpoolCwd)
	writeWords(&b, "projects", j.Projects)
	writeField(&b, "after", j.After)
	if j.Paused {
		b.WriteString(" -paused 1")
	}
	if len(j.subtasks) > 0 {
		b.WriteString(" -subtasks {\n")
		seen := make(map[*Task]bool)
		for _, t := range j.subtasks {
			t.write(&b, 1, seen)
		}
		b.WriteString("}")
	}
	b.WriteString("\n")
	return b.String()
}

// Script serializes a single task definition, as accepted by the engine
// when a command expands into new subtasks at runtime.
func (t *Task) Script() string {
	var b strings.Builder
	t.write(&b, 0, make(map[*Task]bool))
	return b.String()
}

func (t *Task) write(b *strings.Builder, depth int, seen map[*Task]bool) {
	indent := strings.Repeat("  ", depth)
	if seen[t] {
		fmt.Fprintf(b, "%sInstance {%s}\n", indent, escape(t.Title))
		return
	}
	seen[t] = true

	b.WriteString(indent)
	b.WriteString("Task")
	writeField(b, "title", t.Title)
	writeField(b, "service", t.Service)
	writeField(b, "metadata", t.Metadata)
	if t.Serialsubtasks {
		b.WriteString(" -serialsubtasks 1")
	}
	if len(t.Cmds) > 0 {
		b.WriteString(" -cmds {\n")
		for _, c := range t.Cmds {
			c.write(b, depth+1)
		}
		b.WriteString(indent)
		b.WriteString("}")
	}
	if len(t.subtasks) > 0 {
		b.WriteString(" -subtasks {\n")
		for _, sub := range t.subtasks {
			sub.write(b, depth+1, seen)
		}
		b.WriteString(indent)
		b.WriteString("}")
	}
	b.WriteString("\n")
}

func (c *Cmd) write(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(b, "RemoteCmd {%s}", escape(strings.Join(c.Argv, " ")))
	writeField(b, "service", c.Service)
	writeWords(b, "tags", c.Tags)
	writeList(b, "envkey", c.Envkey)
	if c.Expand {
		b.WriteString(" -expand 1")
	}
	b.WriteString("\n")
}

// writeField emits ` -name {value}` when value is non-empty.
func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, " -%s {%s}", name, escape(value))
}

// writeWords emits ` -name {w1 w2}`, a flat word list.
func writeWords(b *strings.Builder, name string, words []string) {
	if len(words) == 0 {
		return
	}
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = escape(w)
	}
	fmt.Fprintf(b, " -%s {%s}", name, strings.Join(escaped, " "))
}

// writeList emits ` -name {{e1} {e2}}`, a list whose elements may contain
// spaces (envkey entries like "setenv K=V").
func writeList(b *strings.Builder, name string, elems []string) {
	if len(elems) == 0 {
		return
	}
	escaped := make([]string, len(elems))
	for i, e := range elems {
		escaped[i] = "{" + escape(e) + "}"
	}
	fmt.Fprintf(b, " -%s {%s}", name, strings.Join(escaped, " "))
}

var escaper = strings.NewReplacer("{", `\{`, "}", `\}`)

// escape protects brace characters inside a braced Alfred value.
func escape(s string) string {
	return escaper.Replace(s)
}
