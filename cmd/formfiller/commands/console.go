package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Console answers the transcriber's operator prompts over stdin. A
// single reader goroutine feeds lines into a channel so prompts can
// honor context cancellation while a read is pending.
type Console struct {
	lines chan string
}

func NewConsole() *Console {
	c := &Console{lines: make(chan string)}
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			c.lines <- strings.TrimSpace(sc.Text())
		}
	}()
	return c
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func (c *Console) PickCard(ctx context.Context, prompt string, options []string) (int, error) {
	fmt.Println(prompt)

	t := newTable()
	t.AppendHeader(table.Row{"№", "Карточка"})
	for i, opt := range options {
		t.AppendRow(table.Row{i + 1, opt})
	}
	t.Render()

	for {
		fmt.Printf("Введите номер (1-%d): ", len(options))
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(options) {
			fmt.Println("Некорректный номер, попробуйте ещё раз.")
			continue
		}
		return n - 1, nil
	}
}

func (c *Console) ConfirmPage(ctx context.Context, prompt string) (bool, error) {
	return c.yesNo(ctx, prompt)
}

func (c *Console) ConfirmSave(ctx context.Context, summary string) (bool, error) {
	fmt.Println("Проверьте данные перед сохранением:")
	fmt.Println(summary)
	return c.yesNo(ctx, "Сохранить запись?")
}

func (c *Console) yesNo(ctx context.Context, prompt string) (bool, error) {
	for {
		fmt.Printf("%s [д/н]: ", prompt)
		line, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "д", "да", "y", "yes":
			return true, nil
		case "н", "нет", "n", "no":
			return false, nil
		}
		fmt.Println("Ответьте «д» или «н».")
	}
}

func (c *Console) CorrectAddress(ctx context.Context, current string) (string, error) {
	fmt.Printf("Адрес: %q\n", current)
	fmt.Print("Enter — оставить, либо введите исправленный адрес: ")
	line, err := c.readLine(ctx)
	if err != nil {
		return "", err
	}
	if line == "" {
		return current, nil
	}
	return line, nil
}

func (c *Console) Resume(ctx context.Context, reason string) error {
	fmt.Println(reason)
	fmt.Print("Нажмите Enter, чтобы продолжить обработку: ")
	_, err := c.readLine(ctx)
	return err
}

func (c *Console) SelectCompleted(ctx context.Context, names []string) ([]int, error) {
	fmt.Println("Успешно обработанные семьи:")

	t := newTable()
	t.AppendHeader(table.Row{"№", "Семья"})
	for i, name := range names {
		t.AppendRow(table.Row{i + 1, name})
	}
	t.Render()

	for {
		fmt.Print("Какие перенести в архив? (номера через запятую, «все», пусто — ни одной): ")
		line, err := c.readLine(ctx)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return nil, nil
		}
		if strings.EqualFold(line, "все") || strings.EqualFold(line, "all") {
			all := make([]int, len(names))
			for i := range names {
				all[i] = i
			}
			return all, nil
		}

		picked, ok := parseIndexList(line, len(names))
		if !ok {
			fmt.Println("Некорректный список номеров, попробуйте ещё раз.")
			continue
		}
		return picked, nil
	}
}

// parseIndexList turns "1, 3 5" into 0-based indexes, rejecting
// anything out of range.
func parseIndexList(line string, max int) ([]int, bool) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})

	var out []int
	seen := map[int]bool{}
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > max {
			return nil, false
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n-1)
		}
	}
	return out, len(out) > 0
}
