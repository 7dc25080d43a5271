package mcpserver

// PromptFormatURI is the resource URI of the prompt file format description.
const PromptFormatURI = "promptpad://prompt-format"

// PromptFormatContract describes how PromptPad stores prompts on disk so LLM
// consumers know what create_prompt will produce and what external edits
// must preserve.
const PromptFormatContract = `# PromptPad Prompt Format

Each prompt is one Markdown file under ` + "`" + `prompts/<folder>/<slug>.md` + "`" + `.

## Structure

` + "```" + `markdown
---
id: 6f1c2f6e-2b1a-4c55-9d3e-3c6a5f0e9a11   # REQUIRED - UUID, never changes
name: Daily Standup                          # REQUIRED - display name
description: Morning status template         # OPTIONAL
tags:                                        # OPTIONAL - YAML list
  - work
created: 2026-01-15T09:00:00Z                # REQUIRED - RFC 3339
use_count: 0                                 # managed by PromptPad
last_used_at: 2026-01-20T08:30:00Z           # managed by PromptPad
---

Prompt body, pasted verbatim.
` + "```" + `

## Rules

1. The ` + "`" + `---` + "`" + ` fences open the file; the block between them is YAML.
2. ` + "`" + `id` + "`" + `, ` + "`" + `name` + "`" + ` and ` + "`" + `created` + "`" + ` are required. Files missing them are skipped.
3. Folders are a single level deep. Prompts without a folder live in
   ` + "`" + `uncategorized` + "`" + `.
4. File names are derived from the name when the prompt is created: lowercase,
   every character other than a letter, digit, ` + "`" + `-` + "`" + ` or ` + "`" + `_` + "`" + ` becomes ` + "`" + `-` + "`" + `.
   Renaming a prompt keeps its file.
5. ` + "`" + `use_count` + "`" + ` and ` + "`" + `last_used_at` + "`" + ` are updated through the record_usage tool;
   do not edit them by hand.
6. Use create_prompt instead of writing files directly: it assigns the id,
   avoids name collisions and keeps the index current.
`
