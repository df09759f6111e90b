package main

import (
    "net/http"
)

// serveChatPage send a minimal client for the chat rooms.
func serveChatPage(w http.ResponseWriter) {
    w.Header().Set("Content-Type", "text/html")
    w.WriteHeader(http.StatusOK)
    w.Write([]byte(chat_page))
}

const chat_page = `<html>
    <head>
        <title> Chat rooms </title>
        <meta charset="utf-8" name="viewport" />

        <style>
            body {
                padding-left: 10%;
                padding-right: 10%;
                font-size: large;
            }
            div {
                display: flex;
                flex-direction: row;
                align-items: baseline;
                margin-bottom: 0.25em;
            }
            label {
                font-size: large;
            }
            input.text {
                margin-left: 1em;
                height: 2em;
                font-size: large;
            }
            input.button {
                height: 2em;
                font-size: large;
            }
            input.textbox {
                width: 90%;
                margin-right: 0.25em;
                margin-top: 0.25em;
                height: 2em;
                font-size: large;
            }
            div.textbox {
                display: block;
                width: 95%;
                height: 75%;
                margin-top: 0.25em;
                overflow-y: scroll;
                border: solid;
                padding: 1em;
            }
        </style>

        <script>
            let ws = null;
            let room = '';

            let escape = function(txt) {
                let p = document.createElement('p');
                p.textContent = txt;
                return p.innerHTML;
            }

            let appendMsg = function(msg) {
                let chat = document.getElementById('chat');
                chat.innerHTML += msg;
                chat.scrollTo(0, chat.scrollHeight);
            }

            let wsRecv = function(e) {
                let idx = e.data.indexOf(':');
                let name = e.data.substring(0, idx);
                let payload = JSON.parse(e.data.substring(idx + 1));

                if (name == 'new_message') {
                    appendMsg('<p> ' + payload.created_at + ' - user ' + payload.author_id + ': ' + escape(payload.text) + ' </p>');
                } else if (name == 'validation_error') {
                    for (let detail of payload) {
                        appendMsg('<p> Message rejected: ' + escape(detail.msg) + ' </p>');
                    }
                }
            }

            let wsClose = function(e) {
                appendMsg('<p> Connection to the room was closed! (' + e.code + ') </p>');
                ws = null;
            }

            let connect = function() {
                let rfield = document.getElementById('room');
                let tfield = document.getElementById('token');

                room = rfield.value;

                if (ws != null) {
                    ws.close()
                    ws = null;
                }

                appendMsg('<p> Now talking on ' + escape(room) + '! </p>');

                let scheme = window.location.protocol == 'https:' ? 'wss://' : 'ws://';
                ws = new WebSocket(scheme + window.location.host + '/api/v1/chats/ws/' +
                        encodeURIComponent(room) + '?token=' + encodeURIComponent(tfield.value))
                ws.addEventListener('message', wsRecv)
                ws.addEventListener('close', wsClose)
            }

            let send = function() {
                let mfield = document.getElementById('message');

                let msg = mfield.value;
                if (ws == null) {
                    return;
                }

                ws.send(msg);
                mfield.value = '';
            }

            let on_boot = function (e) {
                let mfield = document.getElementById('message');
                mfield.addEventListener('keyup', function (e) {
                    if (e.key == 'Enter') {
                        send();
                    }
                });
            }
            document.addEventListener('DOMContentLoaded', on_boot);
        </script>
    </head>

    <body>
        <div>
            <label for='room'> Room: </label>
            <input class='text' type='text' id='room' name='room'>
        </div>
        <div>
            <label for='token'> Token: </label>
            <input class='text' type='password' id='token' name='token'>
        </div>
        <div>
            <input class='button' onclick="connect();" type="button" value="Connect">
        </div>

        <div class='textbox' id='chat'> </div>

        <div>
            <input class='textbox' type='text' id='message' name='message'>
            <input class='button' onclick="send();" type="button" value="Send">
        </div>
    </body>
</html>`
