// Package transcript exports a chat as Markdown or HTML.
//
// The transcript follows the user's history, which holds every message the
// human saw: their own messages and each assistant reply. Each message gets
// a heading with its author. Message content is Markdown and is rendered
// with goldmark (GitHub flavoured); raw HTML in content is not passed
// through.
package transcript
