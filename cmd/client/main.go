package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"

	"github.com/herocast/herocast/client"
)

var (
	addr = flag.String("addr", "localhost:8000", "http service address")
	nick = flag.String("nick", "", "nickname to register")
)

func main() {
	flag.Parse()

	if *nick == "" {
		log.Fatal("a nickname is required, pass -nick")
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("connecting to %s as %s", u.String(), *nick)

	c, err := client.NewClient(u)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Teardown()

	if err := c.SetNickname(*nick); err != nil {
		log.Fatal("nickname rejected: ", err)
	}

	go c.Read(func(message string) {
		fmt.Println(message)
	})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				if err := c.Shutdown(); err != nil {
					log.Println("close:", err)
				}
				return
			}
			if line == "" {
				continue
			}
			if err := c.Send(line); err != nil {
				log.Println("write:", err)
				return
			}
		case <-interrupt:
			log.Println("interrupt")
			if err := c.Shutdown(); err != nil {
				log.Println("write close:", err)
			}
			return
		}
	}
}
