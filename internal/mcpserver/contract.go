package mcpserver

// NoteFormatContract describes how sprig reads note content. LLM consumers
// should follow it when creating or updating notes.
const NoteFormatContract = `# Sprig Note Format Contract

A note is free-form Markdown text. Sprig derives two things from it and
stores nothing else about the text itself.

## Title

The title is the text after "# " on the first line that starts with "# "
once surrounding whitespace is removed. A note without such a line is titled
"Untitled". Put the heading first:

` + "```" + `markdown
# Weekly standup 2026-01-20

Attendees: Alice, Bob.
` + "```" + `

## Links

Notes are addressed by numeric id. Each of these forms creates a link that
shows up in the target's backlinks:

- ` + "`" + `[[42]]` + "`" + `
- ` + "`" + `[[42|display text]]` + "`" + `
- ` + "`" + `[display text](42)` + "`" + `

Links to ids that do not exist are not listed anywhere. Links are recomputed
on every update, so removing the text removes the link.

## Hierarchy

Placement is not part of the content. Use attach_note, or pass parent_id to
create_note. A note has at most one parent and cycles are rejected.

## Updates

read_note returns the note's hash. Pass it back as ` + "`" + `hash` + "`" + ` to update_note
to reject the write if someone else changed the note in between. Every
update keeps the previous content in the note's history.

## Tasks

Any note can be promoted to a task with promote_task. Valid statuses are
todo, done, wait, hold, idea, kill, proj and event; any status may follow any
other.
`
