// Package inifile models the INI-style configuration files read by the
// network agent.
//
// A Document keeps every line it was parsed from, so serializing an
// unmodified document reproduces the input byte for byte:
//
//	doc, err := inifile.Parse(text)
//	doc.String() == text // for any text Parse accepts
//
// Edits touch only the lines they concern. Overwriting an option rewrites its
// own line, keeping indentation and the "key = " spacing; new options are
// appended after the last option of their section and new sections are
// appended at the end of the document.
//
// # Format
//
//   - "[name]" starts a section. A trailing "# comment" after the header is
//     allowed.
//   - "name = value" assigns an option. Everything after the separator is the
//     value, including any '#' characters.
//   - Lines starting with '#' or ';' are comments. Comments and blank lines
//     before the first section form the preamble.
//   - Indented lines directly after an option continue its value.
//
// Section and option names are case-sensitive and must be unique.
package inifile
