package session_test

import (
	stdlog "log"

	"psitest/pkg/session"
)

// Drive an interpreter through a short definition-and-call exchange. Every
// command that defines something answers with empty output on both streams;
// the final call prints through the bound symbol.
func ExampleStart() {
	interp, err := session.Start("./psi")
	if err != nil {
		stdlog.Fatal(err)
	}
	defer interp.Close()

	checks := []struct{ command, expected string }{
		{`libc : library{};`, ""},
		{`puts : libc.symbol (function (::pointer(ubyte) -: int)) {"type":"c","name":"puts"};`, ""},
		{`x : {hello};`, ""},
		{`puts(x);`, "hello\n"},
	}
	for _, c := range checks {
		if err := interp.Check(c.command, c.expected); err != nil {
			stdlog.Fatal(err)
		}
	}
}

// A command that must fail leaves the session usable, so recovery paths can
// be exercised in the same session as the failure itself.
func ExampleSession_CheckFail() {
	interp, err := session.Start("./psi")
	if err != nil {
		stdlog.Fatal(err)
	}
	defer interp.Close()

	if err := interp.Check(`libc : library{}`, ""); err != nil {
		stdlog.Fatal(err)
	}
	if err := interp.Check(`puts_type : function_type (::pointer(ubyte) -: int)`, ""); err != nil {
		stdlog.Fatal(err)
	}
	if err := interp.Check(`puts : libc.symbol (puts_type) {}`, ""); err != nil {
		stdlog.Fatal(err)
	}
	if _, err := interp.CheckFail(`puts({hello})`); err != nil {
		stdlog.Fatal(err)
	}
	if err := interp.Check(`puts_alt : libc.symbol (puts_type) {"type":"c","name":"puts"}`, ""); err != nil {
		stdlog.Fatal(err)
	}
	if err := interp.Check(`puts_alt({hello})`, "hello\n"); err != nil {
		stdlog.Fatal(err)
	}
}
