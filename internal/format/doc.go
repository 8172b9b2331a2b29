// Package format turns raw generated text into readable text.
//
// A Pipeline is an ordered list of strategies sharing one contract,
// text in and text out. The default chain is the built-in token-tree
// printer followed by an external formatter subprocess (rustfmt). When
// every strategy fails the policy decides: return the raw text with a
// warning on the trace side-channel, or fail the call.
//
// Назначение: форматирование сгенерированного текста перед хешированием.
// Не делает: семантической проверки текста, IO на диске.
// Зависимости: internal/trace.
package format
