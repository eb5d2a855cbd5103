package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/config"
	"github.com/svca/portal/internal/gateway"
	"github.com/svca/portal/internal/geocode"
	"github.com/svca/portal/internal/guard"
	"github.com/svca/portal/internal/occurrence"
	"github.com/svca/portal/internal/search"
	"github.com/svca/portal/internal/session"
)

const sessionKey = "cli"

type app struct {
	cfg   *config.CLI
	store *session.Store
	gw    *gateway.Client
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadCLI()
	if err != nil {
		log.Fatal().Err(err).Msg("configuração inválida")
	}

	store, err := session.Open(ctx, session.NewFilePersister(cfg.SessionFile), sessionKey)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.SessionFile).Msg("não foi possível abrir a sessão")
	}
	gw, err := gateway.New(gateway.Config{BaseURL: cfg.BackendURL, Timeout: cfg.BackendTimeout, Jar: store.Jar()})
	if err != nil {
		log.Fatal().Err(err).Msg("backend inválido")
	}
	a := &app{cfg: cfg, store: store, gw: gw}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "login":
		err = a.runLogin(ctx, args)
	case "logout":
		err = a.runLogout(ctx)
	case "whoami":
		err = a.runWhoami()
	case "nav":
		err = a.runNav(args)
	case "ocorrencias":
		err = a.runOccurrences(ctx, args)
	case "orgaos":
		err = a.runOrganizations(ctx, args)
	case "ranking":
		err = a.runRanking(ctx)
	case "geocode":
		err = a.runGeocode(ctx, args)
	default:
		usage()
		os.Exit(1)
	}

	if flushErr := store.Flush(context.WithoutCancel(ctx)); flushErr != nil {
		log.Warn().Err(flushErr).Msg("falha ao salvar cookies da sessão")
	}
	if err != nil {
		if store.Observe(ctx, err, true) {
			log.Error().Msg("sessão encerrada pelo servidor; faça login novamente")
		}
		log.Fatal().Str("kind", apperr.KindOf(err).String()).Msg(apperr.Message(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "svca CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  svca login --email ana@exemplo.com [--password segredo]   (ou SVCA_PASSWORD)")
	fmt.Fprintln(os.Stderr, "  svca logout")
	fmt.Fprintln(os.Stderr, "  svca whoami")
	fmt.Fprintln(os.Stderr, "  svca nav /gerenciar-ocorrencias")
	fmt.Fprintln(os.Stderr, "  svca ocorrencias [--minhas] [--status Pendente] [--search vazamento]")
	fmt.Fprintln(os.Stderr, "  svca orgaos [--debounce 500ms]   (lê termos de busca da entrada padrão)")
	fmt.Fprintln(os.Stderr, "  svca ranking")
	fmt.Fprintln(os.Stderr, "  svca geocode \"Rua A, 10, Centro, Campina Grande\"")
}

func printJSON(v any) {
	encoded, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(encoded))
}

func (a *app) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		email    = fs.String("email", "", "e-mail cadastrado")
		password = fs.String("password", "", "senha; padrão SVCA_PASSWORD")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("SVCA_PASSWORD")
	}

	id, err := a.gw.Login(ctx, gateway.Credentials{Email: strings.TrimSpace(*email), Password: *password})
	if err != nil {
		return err
	}
	if err := a.store.Login(ctx, id); err != nil {
		return err
	}
	if !a.store.Authenticated() {
		return errors.New("resposta de login incompleta")
	}
	fmt.Printf("Olá, %s (%s)\n", id.DisplayName, id.Role)
	return nil
}

func (a *app) runLogout(ctx context.Context) error {
	if !a.store.Authenticated() {
		fmt.Println("nenhuma sessão ativa")
		return nil
	}
	if err := a.store.Logout(ctx, a.gw); err != nil {
		return err
	}
	fmt.Println("sessão encerrada")
	return nil
}

func (a *app) runWhoami() error {
	if !a.store.Authenticated() {
		fmt.Println("anônimo")
		return nil
	}
	printJSON(a.store.Identity())
	return nil
}

func (a *app) runNav(args []string) error {
	if len(args) != 1 {
		return errors.New("informe um caminho, ex.: svca nav /dashboard")
	}
	nav := guard.NewNavigator()
	nav.OnTransition(func(from, to guard.State) {
		log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("navegação")
	})
	printJSON(nav.Navigate(a.store, args[0]))
	return nil
}

func (a *app) runOccurrences(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ocorrencias", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		mine   = fs.Bool("minhas", false, "somente ocorrências registradas por mim")
		status = fs.String("status", "", "filtra pelo nome do status")
		term   = fs.String("search", "", "busca por título ou endereço")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		items []occurrence.Summary
		err   error
	)
	if *mine {
		items, err = a.gw.MyOccurrences(ctx)
	} else {
		items, err = a.gw.ListOccurrences(ctx, gateway.Filter{Status: *status, Search: *term})
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("nenhuma ocorrência encontrada")
		return nil
	}
	printJSON(items)
	return nil
}

// runOrganizations busca órgãos a cada linha lida. Linhas digitadas em
// sequência rápida disparam apenas a última busca.
func (a *app) runOrganizations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orgaos", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	delay := fs.Duration("debounce", a.cfg.SearchDebounce, "janela de agrupamento das buscas")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d := search.New(ctx, *delay, a.gw.ListOrganizations)
	defer d.Close()

	type outcome struct {
		term string
		err  error
	}
	delivered := make(chan outcome, 16)
	go func() {
		for res := range d.Results() {
			if res.Err != nil {
				log.Warn().Str("term", res.Term).Msg(apperr.Message(res.Err))
			} else {
				fmt.Printf("# %q: %d órgão(s)\n", res.Term, len(res.Value))
				for _, org := range res.Value {
					fmt.Printf("  %d\t%s\t%s\t%s\n", org.ID, org.Name, org.Email, org.Phone)
				}
			}
			select {
			case delivered <- outcome{term: res.Term, err: res.Err}:
			default:
			}
		}
	}()

	last := ""
	d.Input(last)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		last = strings.TrimSpace(scanner.Text())
		d.Input(last)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// aguarda a resposta do último termo antes de encerrar
	deadline := time.After(*delay + a.cfg.BackendTimeout)
	for {
		select {
		case out := <-delivered:
			if apperr.Is(out.err, apperr.KindAuth) {
				return out.err
			}
			if out.term == last {
				return nil
			}
		case <-deadline:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *app) runRanking(ctx context.Context) error {
	entries, err := a.gw.ListRanking(ctx)
	if err != nil {
		return err
	}
	for i, e := range entries {
		fmt.Printf("%2d. %-30s %d\n", i+1, e.Name, e.Points)
	}
	return nil
}

func (a *app) runGeocode(ctx context.Context, args []string) error {
	address := strings.TrimSpace(strings.Join(args, " "))
	client := geocode.New(geocode.Config{BaseURL: a.cfg.NominatimURL, UserAgent: a.cfg.UserAgent})
	coords, err := client.Search(ctx, address)
	if err != nil {
		return err
	}
	printJSON(coords)
	return nil
}
