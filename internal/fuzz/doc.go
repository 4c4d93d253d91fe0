
// Package fuzztests houses Go fuzz harnesses that drive the generator with
// arbitrary seeds, heights and strategies and check that what comes out is
// accepted by the pipeline it targets (joiner -> lexer -> parser).
//
// Назначение: ловить паники генератора и программы, которые не проходят
// повторный лексинг или разбор.
//
// Не делает: запись файлов, запуск внешних команд, CLI.
//
// Зависимости: internal/fuzzer, internal/selection, internal/joiner,
// internal/lexer, internal/parser, internal/randtext, internal/testkit.

package fuzztests
