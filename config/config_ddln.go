// Site-specific defaults. Create your own and mark it with your build tag, then remove the !ddln
// tag below.
// +build ddln !ddln

package config

// Project name
const ProjectName = "pylintmark"

// Chroma style used for source excerpts in terminals and in the web view
const SourceStyle = "monokai"

// Address the web view listens on
const WebAddr = ":8080"
