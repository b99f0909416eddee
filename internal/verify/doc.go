// Package verify drives a page through the language-switch verification:
// load, wait for default-language content, capture, switch language, wait,
// confirm the alternate language and capture again.
package verify
